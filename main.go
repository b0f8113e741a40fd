// ABOUTME: Entry point for the backhaul dashboard data-layer CLI
// ABOUTME: Routes commands to client, file, status, and watch handlers
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/backhaul/cli"
	"github.com/harperreed/backhaul/config"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	backendAddr := flag.String("backend", "", "Live backend host:port (default: synthetic only)")
	snapshotPath := flag.String("snapshot", "", "Synthetic snapshot path override")

	flag.Parse()

	if *showVersion {
		fmt.Printf("backhaul version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg := config.Load()
	if *backendAddr != "" {
		cfg.BackendAddr = *backendAddr
	}
	if *snapshotPath != "" {
		cfg.SnapshotPath = *snapshotPath
	}

	app, err := cli.NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "clients":
		err = cli.ListClientsCommand(app, commandArgs)
	case "client":
		err = cli.ShowClientCommand(app, commandArgs)
	case "disconnect":
		err = cli.DisconnectClientCommand(app, commandArgs)
	case "delete-client":
		err = cli.DeleteClientCommand(app, commandArgs)
	case "files":
		err = cli.ListFilesCommand(app, commandArgs)
	case "delete-file":
		err = cli.DeleteFileCommand(app, commandArgs)
	case "verify":
		err = cli.VerifyFileCommand(app, commandArgs)
	case "backup":
		err = cli.BackupCommand(app, commandArgs)
	case "ops":
		err = cli.ListOperationsCommand(app, commandArgs)
	case "status":
		err = cli.StatusCommand(app, commandArgs)
	case "activity":
		err = cli.ActivityCommand(app, commandArgs)
	case "watch":
		err = cli.WatchCommand(app, commandArgs)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func printUsage() {
	fmt.Println(`backhaul - backup server dashboard data layer

Usage:
  backhaul [flags] <command> [command flags]

Commands:
  clients                      List all clients
  client --id <id>             Show one client
  disconnect --id <id>         Disconnect a client
  delete-client --id <id>      Delete a client and its files
  files [--client <id>]        List files
  delete-file --id <id>        Delete a file
  verify --id <id>             Verify a file
  backup --client <id> [--files N]
                               Record a backup run
  ops [--client <id>]          List backup operations
  status                       Show server status
  activity [--n N]             Show recent operations
  watch [--interval D] [--polls N]
                               Watch the client list for changes

Flags:
  --version                    Show version
  --backend <host:port>        Use a live backend
  --snapshot <path>            Override the snapshot file path`)
}
