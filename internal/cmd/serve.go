package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"ftpvault/internal/ftpservice"
	"ftpvault/internal/lifecycle"
)

// newServeCmd creates the serve command.
func newServeCmd(provider *AppProvider) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the FTP service",
		Long: `Run the FTP service in the foreground until SIGINT or SIGTERM.

Required settings (ftp_username, ftp_local_root) and the password digest
are read from the store before the port is bound. While serving, the store
records ftp_running=1 and this process's pid; both are cleared on every
exit path.

Exit status:
  0  clean shutdown
  2  store unavailable
  3  missing or invalid setting
  4  cannot bind the service port
  5  unexpected fault`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []ftpservice.Option
			if host != "" {
				opts = append(opts, ftpservice.WithHost(host))
			}
			return runServe(ctx, app, opts...)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Address to bind (default: all interfaces)")

	return cmd
}

// runServe loads settings and serves until ctx is cancelled. A panic while
// serving has already been recorded by the lifecycle recorder when it
// reaches here and is returned as an unexpected fault.
func runServe(ctx context.Context, app *App, opts ...ftpservice.Option) (err error) {
	settings, err := ftpservice.LoadSettings(ctx, app.Schema, app.Paths.CertDir)
	if err != nil {
		app.Log.Error("startup_failed", "error", err)
		return err
	}

	svc, err := ftpservice.New(settings, lifecycle.New(app.Schema, app.Log), app.Log, opts...)
	if err != nil {
		app.Log.Error("startup_failed", "error", err)
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			app.Log.Error("serve_panic", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", lifecycle.ErrUnexpectedFault, p)
		}
	}()
	return svc.Serve(ctx)
}
