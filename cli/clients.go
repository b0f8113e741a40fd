// ABOUTME: Client CLI commands
// ABOUTME: Human-friendly commands for listing and managing backup clients
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/harperreed/backhaul/bridge"
	"github.com/harperreed/backhaul/models"
)

// ListClientsCommand prints all clients.
func ListClientsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("clients", flag.ExitOnError)
	_ = fs.Parse(args)

	env := app.Router.ListClients(context.Background())
	if !env.Success {
		return fmt.Errorf("list clients: %s", env.Error)
	}
	app.Publish(bridge.OpListClients, env)

	clients := env.Data.([]models.Client)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tSTATUS\tFILES\tSIZE\tPLATFORM\tVERSION")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			c.Name, c.Address, c.Status, c.FileCount, humanBytes(c.TotalBytes), c.Platform, c.Version)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d clients (%s data)\n", len(clients), env.Mode)
	return nil
}

// ShowClientCommand prints one client in detail.
func ShowClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	idArg := fs.String("id", "", "Client ID (required)")
	_ = fs.Parse(args)

	id, err := parseID(*idArg)
	if err != nil {
		return err
	}

	env := app.Router.GetClient(context.Background(), id)
	if !env.Success {
		return fmt.Errorf("get client: %s", env.Error)
	}

	c := env.Data.(models.Client)
	fmt.Printf("Name:       %s\n", c.Name)
	fmt.Printf("ID:         %s\n", c.ID)
	fmt.Printf("Address:    %s\n", c.Address)
	fmt.Printf("Status:     %s\n", c.Status)
	fmt.Printf("Platform:   %s (%s)\n", c.Platform, c.Version)
	fmt.Printf("Files:      %d (%s)\n", c.FileCount, humanBytes(c.TotalBytes))
	fmt.Printf("Last seen:  %s\n", c.LastSeen.Format("2006-01-02 15:04:05"))
	fmt.Printf("Connected:  %s\n", c.ConnectedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// DisconnectClientCommand disconnects a client.
func DisconnectClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)
	idArg := fs.String("id", "", "Client ID (required)")
	_ = fs.Parse(args)

	id, err := parseID(*idArg)
	if err != nil {
		return err
	}

	env := app.Router.DisconnectClient(context.Background(), id)
	if !env.Success {
		return fmt.Errorf("disconnect: %s", env.Error)
	}

	c := env.Data.(models.Client)
	fmt.Printf("Disconnected %s (%s data)\n", c.Name, env.Mode)
	return nil
}

// DeleteClientCommand removes a client and everything it owns.
func DeleteClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-client", flag.ExitOnError)
	idArg := fs.String("id", "", "Client ID (required)")
	_ = fs.Parse(args)

	id, err := parseID(*idArg)
	if err != nil {
		return err
	}

	env := app.Router.DeleteClient(context.Background(), id)
	if !env.Success {
		return fmt.Errorf("delete client: %s", env.Error)
	}

	fmt.Printf("Deleted client %s and its files (%s data)\n", id, env.Mode)
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
