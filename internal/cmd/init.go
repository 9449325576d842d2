package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ftpvault/internal/schema"
)

// newInitCmd creates the init command.
func newInitCmd(provider *AppProvider) *cobra.Command {
	var (
		username string
		root     string
		tlsCert  string
		port     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and store",
		Long: `Create the data directory, the certificates directory and the store,
then fill in default settings that are not already present.

Settings passed as flags are written after validation. Existing values
are never overwritten by defaults.

Examples:
  ftpvault init
  ftpvault init --username alice --root /srv/ftp --tls-cert selfsigned.pem`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			return runInit(cmd.Context(), app, map[string]string{
				schema.KeyUsername:  username,
				schema.KeyLocalRoot: root,
				schema.KeyTLSCert:   tlsCert,
				schema.KeyPort:      port,
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "FTP username")
	cmd.Flags().StringVar(&root, "root", "", "Directory served over FTP")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "PEM file (certificate and key) under the certificates directory")
	cmd.Flags().StringVar(&port, "port", "", "FTP control port")

	return cmd
}

func runInit(ctx context.Context, app *App, settings map[string]string) error {
	for _, dir := range []string{app.Paths.DataDir, app.Paths.CertDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	for _, k := range []string{schema.KeyUsername, schema.KeyLocalRoot, schema.KeyTLSCert, schema.KeyPort} {
		v := settings[k]
		if v == "" {
			continue
		}
		if err := app.Schema.SetSetting(ctx, k, v); err != nil {
			return err
		}
	}
	if err := app.Schema.ApplyDefaults(ctx); err != nil {
		return err
	}

	if app.JSON {
		return json.NewEncoder(app.Out).Encode(map[string]string{
			"data_dir": app.Paths.DataDir,
			"store":    app.Paths.StoreFile,
			"backend":  app.Options.Backend,
		})
	}
	fmt.Fprintf(app.Out, "%s ftpvault store at %s\n", app.SuccessColor("Initialized"), app.Paths.StoreFile)
	return nil
}
