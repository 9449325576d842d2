package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
	defer provider.Close()

	rootCmd := newRootCmd(provider)
	return rootCmd.Execute()
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ftpvault",
		Short: "A single-user FTP service with a shared, crash-safe configuration store",
		Long: `ftpvault serves one directory over FTP to one configured user.

Settings, the password digest and the service's running state live in a
shared key/value store that supervisors and status readers can inspect
while the service runs. Writes to the store are atomic across processes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags - these populate the provider config
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	pf.StringVar(&provider.DataDir, "data-dir", "", "Data directory (default: $FTPVAULT_DIR or ~/.local/share/ftpvault)")
	pf.StringVar(&provider.StoreFile, "store", "", "Store file, relative to the data directory")
	pf.StringVar(&provider.Backend, "backend", "", "Store backend: file, sqlite or helper")
	pf.StringVar(&provider.Helper, "helper", "", "Helper command for the helper backend")
	pf.StringVar(&provider.LogLevel, "log-level", "", "Log level: debug, info, warn or error")

	// Register all commands
	rootCmd.AddCommand(newInitCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newSecretCmd(provider))
	rootCmd.AddCommand(newServeCmd(provider))
	rootCmd.AddCommand(newStatusCmd(provider))
	rootCmd.AddCommand(newKVHelperCmd(provider))

	return rootCmd
}
