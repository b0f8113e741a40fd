// ABOUTME: File and backup CLI commands
// ABOUTME: Lists, deletes, verifies files and records backup runs
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

// ListFilesCommand prints files, optionally for one client.
func ListFilesCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	clientArg := fs.String("client", "", "Filter by client ID")
	_ = fs.Parse(args)

	var clientID *uuid.UUID
	if *clientArg != "" {
		id, err := uuid.Parse(*clientArg)
		if err != nil {
			return fmt.Errorf("invalid client id %q: %w", *clientArg, err)
		}
		clientID = &id
	}

	env := app.Router.ListFiles(context.Background(), clientID)
	if !env.Success {
		return fmt.Errorf("list files: %s", env.Error)
	}
	app.Publish(bridge.OpListFiles, env)

	files := env.Data.([]models.File)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tSTATUS\tBACKUPS\tLAST BACKUP")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			f.Path, humanBytes(f.Size), f.Status, f.BackupCount, f.LastBackupAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d files (%s data)\n", len(files), env.Mode)
	return nil
}

// DeleteFileCommand removes one file.
func DeleteFileCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-file", flag.ExitOnError)
	idArg := fs.String("id", "", "File ID (required)")
	_ = fs.Parse(args)

	id, err := parseID(*idArg)
	if err != nil {
		return err
	}

	env := app.Router.DeleteFile(context.Background(), id)
	if !env.Success {
		return fmt.Errorf("delete file: %s", env.Error)
	}

	fmt.Printf("Deleted file %s (%s data)\n", id, env.Mode)
	return nil
}

// VerifyFileCommand transitions a file to verified.
func VerifyFileCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	idArg := fs.String("id", "", "File ID (required)")
	_ = fs.Parse(args)

	id, err := parseID(*idArg)
	if err != nil {
		return err
	}

	env := app.Router.VerifyFile(context.Background(), id)
	if !env.Success {
		return fmt.Errorf("verify file: %s", env.Error)
	}

	f := env.Data.(models.File)
	fmt.Printf("Verified %s (%s data)\n", f.Path, env.Mode)
	return nil
}

// BackupCommand records a backup run for a client.
func BackupCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	clientArg := fs.String("client", "", "Client ID (required)")
	files := fs.Int("files", 1, "Number of new files in this run")
	_ = fs.Parse(args)

	id, err := parseID(*clientArg)
	if err != nil {
		return err
	}

	env := app.Router.RecordBackup(context.Background(), id, *files)
	if !env.Success {
		return fmt.Errorf("record backup: %s", env.Error)
	}

	op := env.Data.(models.BackupOperation)
	fmt.Printf("Recorded backup %s: %d files, %s (%s data)\n",
		op.ID, op.FileCount, humanBytes(op.TotalBytes), env.Mode)
	return nil
}

// ListOperationsCommand prints backup history.
func ListOperationsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("ops", flag.ExitOnError)
	clientArg := fs.String("client", "", "Filter by client ID")
	_ = fs.Parse(args)

	var clientID *uuid.UUID
	if *clientArg != "" {
		id, err := uuid.Parse(*clientArg)
		if err != nil {
			return fmt.Errorf("invalid client id %q: %w", *clientArg, err)
		}
		clientID = &id
	}

	env := app.Router.ListOperations(context.Background(), clientID)
	if !env.Success {
		return fmt.Errorf("list operations: %s", env.Error)
	}

	ops := env.Data.([]models.BackupOperation)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCLIENT\tFILES\tSIZE\tSTATUS")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			op.StartedAt.Format("2006-01-02 15:04"), op.ClientID, op.FileCount,
			humanBytes(op.TotalBytes), op.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d operations (%s data)\n", len(ops), env.Mode)
	return nil
}
