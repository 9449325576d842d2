package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ftpvault/internal/configservice"
	"ftpvault/internal/lifecycle"
	"ftpvault/internal/status"
)

// newStatusCmd creates the status command.
func newStatusCmd(provider *AppProvider) *cobra.Command {
	var (
		watch     bool
		reconcile bool
		httpAddr  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the FTP service is running",
		Long: `Show the recorded process state and whether the recorded pid is alive.

A record that claims running for a pid that no longer exists is stale:
the service crashed without cleaning up. --reconcile clears it.

--watch prints a new line every time the store changes. --http serves
GET /status and GET /healthz on the given address. Either runs until
interrupted; they cannot be combined.

Examples:
  ftpvault status
  ftpvault status --reconcile
  ftpvault status --watch --json
  ftpvault status --http 127.0.0.1:8021`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if reconcile {
				cleared, err := lifecycle.Reconcile(ctx, app.Schema, nil)
				if err != nil {
					return err
				}
				if cleared {
					app.Log.Warn("stale_state_cleared")
				}
			}

			if err := printStatus(ctx, app); err != nil {
				return err
			}
			if !watch && httpAddr == "" {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if httpAddr != "" {
				return status.ListenAndServe(ctx, httpAddr, status.NewRouter(app.Schema, nil, app.Log), app.Log)
			}
			return status.Watch(ctx, configservice.WatchFiles(app.Options, app.Paths), app.Log, func(ctx context.Context) error {
				return printStatus(ctx, app)
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Print the status again whenever the store changes")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Clear a running record whose pid is gone")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve the status over HTTP on this address")
	cmd.MarkFlagsMutuallyExclusive("watch", "http")

	return cmd
}

func printStatus(ctx context.Context, app *App) error {
	rep, err := status.Snapshot(ctx, app.Schema, nil)
	if err != nil {
		return err
	}

	if app.JSON {
		return json.NewEncoder(app.Out).Encode(rep)
	}

	switch {
	case rep.Stale:
		fmt.Fprintf(app.Out, "%s (pid %d is gone; run with --reconcile)\n", app.WarnColor("stale"), rep.PID)
	case rep.Running:
		fmt.Fprintf(app.Out, "%s (pid %d)\n", app.SuccessColor("running"), rep.PID)
	default:
		fmt.Fprintln(app.Out, "stopped")
	}
	return nil
}
