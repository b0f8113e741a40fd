// ABOUTME: Status, activity, and watch CLI commands
// ABOUTME: Includes a polling watch loop driven by the reactive state manager
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/backhaul/bridge"
	"github.com/harperreed/backhaul/models"
	"github.com/harperreed/backhaul/state"
)

// StatusCommand prints the server summary.
func StatusCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	env := app.Router.ServerStatus(context.Background())
	if !env.Success {
		return fmt.Errorf("server status: %s", env.Error)
	}
	app.Publish(bridge.OpServerStatus, env)

	st := env.Data.(models.ServerStatus)
	fmt.Printf("Server %s, up %s (%s data)\n", st.Version, (time.Duration(st.UptimeSeconds) * time.Second).String(), env.Mode)
	fmt.Printf("Clients: %d connected of %d\n", st.ConnectedClients, st.TotalClients)
	fmt.Printf("Files:   %d (%s)\n", st.TotalFiles, humanBytes(st.TotalBytes))
	return nil
}

// ActivityCommand prints the journal's most recent operations.
func ActivityCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("activity", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of entries")
	_ = fs.Parse(args)

	if app.Journal == nil {
		return fmt.Errorf("activity journal is disabled")
	}

	entries, err := app.Journal.Recent(*limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	for _, e := range entries {
		outcome := "ok"
		if !e.Success {
			outcome = "failed: " + e.Error
		}
		fmt.Printf("%s  %-18s %-9s %s\n", e.At.Format("15:04:05"), e.Op, e.Mode, outcome)
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}

// WatchCommand polls the client list and prints only actual changes. The
// state manager's dedup keeps quiet polls silent.
func WatchCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 5*time.Second, "Poll interval")
	polls := fs.Int("polls", 0, "Stop after this many polls (0 = run forever)")
	_ = fs.Parse(args)

	sub := app.State.Subscribe(bridge.OpListClients, "watch", false, func(ev state.Event) {
		if ev.Kind != state.EventValue {
			return
		}
		clients := ev.Value.([]models.Client)
		connected := 0
		for _, c := range clients {
			if c.Status == models.ClientConnected {
				connected++
			}
		}
		fmt.Printf("%s  v%d [%s] %d clients, %d connected\n",
			time.Now().Format("15:04:05"), ev.Version, ev.Source, len(clients), connected)
	})
	defer app.State.Unsubscribe(sub)

	for i := 0; *polls == 0 || i < *polls; i++ {
		app.State.SetLoading(bridge.OpListClients, true)
		env := app.Router.ListClients(context.Background())
		app.State.SetLoading(bridge.OpListClients, false)

		if env.Success {
			app.Publish(bridge.OpListClients, env)
		}

		if *polls != 0 && i == *polls-1 {
			break
		}
		time.Sleep(*interval)
	}
	return nil
}
