package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ftpvault/internal/kvstorage"
	"ftpvault/internal/schema"
)

const secretMask = "********"

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage settings in the shared store",
		Long: `Manage the key/value entries of the shared store.

Known settings (ftp_username, ftp_local_root, tls_cert, ftp_port,
ftp_passive_ports) are validated on write. Other keys are stored as-is.
Secrets are never printed and are written with "ftpvault secret".

Subcommands:
  get       Get a value
  set       Set a setting
  list      List all entries
  unset     Remove an entry
  validate  Validate every known entry`,
	}

	cmd.AddCommand(newConfigGetCmd(provider))
	cmd.AddCommand(newConfigSetCmd(provider))
	cmd.AddCommand(newConfigListCmd(provider))
	cmd.AddCommand(newConfigUnsetCmd(provider))
	cmd.AddCommand(newConfigValidateCmd(provider))

	return cmd
}

func isSecret(key string) bool {
	ns, ok := schema.NamespaceOf(key)
	return ok && ns == schema.Secrets
}

// newConfigGetCmd creates the "config get" subcommand.
func newConfigGetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a value",
		Long: `Get the value of a key.

Prints the bare value if the key is set, or "key (not set)" if missing.
Settings with a default print the default. Secrets print a mask.

Examples:
  ftpvault config get ftp_username
  ftpvault config get ftp_running`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			key := args[0]
			value, err := app.Store.Get(cmd.Context(), key)
			ok := err == nil
			if err != nil && !errors.Is(err, kvstorage.ErrKeyNotFound) {
				return err
			}
			if !ok {
				if d, has := schema.DefaultValues()[key]; has {
					value, ok = d, true
				}
			}
			if ok && isSecret(key) {
				value = secretMask
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
					"set":   ok,
				})
			}

			if ok {
				fmt.Fprintln(app.Out, value)
			} else {
				fmt.Fprintf(app.Out, "%s (not set)\n", key)
			}
			return nil
		},
	}

	return cmd
}

// newConfigSetCmd creates the "config set" subcommand.
func newConfigSetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting",
		Long: `Set a key to a value.

Secrets and process state cannot be set here: use
"ftpvault secret set-password" for the password, and let the service
record its own state.

Examples:
  ftpvault config set ftp_username alice
  ftpvault config set ftp_local_root /srv/ftp
  ftpvault config set tls_cert selfsigned.pem`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			if isSecret(key) {
				return fmt.Errorf("%s is a secret; use \"ftpvault secret set-password\": %w", key, schema.ErrWrongNamespace)
			}
			if err := app.Schema.SetSetting(cmd.Context(), key, value); err != nil {
				return err
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(app.Out, "Set %s = %s\n", key, value)
			return nil
		},
	}

	return cmd
}

// newConfigListCmd creates the "config list" subcommand.
func newConfigListCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all entries",
		Long: `List all key-value pairs, with defaults for settings that are not set.

Entries are sorted alphabetically by key. Secret values are masked.

Examples:
  ftpvault config list
  ftpvault config list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			all, err := app.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			for k, v := range schema.DefaultValues() {
				if _, exists := all[k]; !exists {
					all[k] = v
				}
			}
			for k := range all {
				if isSecret(k) {
					all[k] = secretMask
				}
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(all)
			}

			if len(all) == 0 {
				fmt.Fprintln(app.Out, "No entries set")
				return nil
			}
			for _, k := range kvstorage.SortedKeys(all) {
				fmt.Fprintf(app.Out, "%s = %s\n", k, all[k])
			}
			return nil
		},
	}

	return cmd
}

// newConfigUnsetCmd creates the "config unset" subcommand.
func newConfigUnsetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove an entry",
		Long: `Remove a key from the store.

Unsetting a key that is not set is not an error.

Examples:
  ftpvault config unset tls_cert`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			key := args[0]
			removed := true
			if err := app.Store.Delete(cmd.Context(), key); err != nil {
				if !errors.Is(err, kvstorage.ErrKeyNotFound) {
					return err
				}
				removed = false
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"key":     key,
					"removed": removed,
				})
			}
			if removed {
				fmt.Fprintf(app.Out, "Unset %s\n", key)
			} else {
				fmt.Fprintf(app.Out, "%s (not set)\n", key)
			}
			return nil
		},
	}

	return cmd
}

// newConfigValidateCmd creates the "config validate" subcommand.
func newConfigValidateCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every known entry",
		Long: `Check every known key in the store against its type.

Also reports the required settings and secret that the service needs
before it can start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := app.Schema.Validate(ctx); err != nil {
				return err
			}
			var missing []error
			for _, k := range []string{schema.KeyUsername, schema.KeyLocalRoot} {
				if _, err := app.Schema.RequiredSetting(ctx, k); err != nil {
					missing = append(missing, err)
				}
			}
			if _, err := app.Schema.SecretHash(ctx, schema.KeyPassword); err != nil {
				missing = append(missing, err)
			}
			if len(missing) > 0 {
				return errors.Join(missing...)
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]bool{"valid": true})
			}
			fmt.Fprintln(app.Out, app.SuccessColor("Configuration is valid"))
			return nil
		},
	}

	return cmd
}
