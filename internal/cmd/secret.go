package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ftpvault/internal/schema"
)

// newSecretCmd creates the secret command with subcommands.
func newSecretCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the shared store",
		Long: `Manage secrets. Only digests are stored; the plaintext password is
hashed in memory and discarded.`,
	}

	cmd.AddCommand(newSecretSetPasswordCmd(provider))

	return cmd
}

// newSecretSetPasswordCmd creates the "secret set-password" subcommand.
func newSecretSetPasswordCmd(provider *AppProvider) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set the FTP user's password",
		Long: `Prompt for the FTP user's password and store its SHA-512 digest.

With --stdin the first line of standard input is read instead, for
scripted provisioning.

Examples:
  ftpvault secret set-password
  printf 'hunter2\n' | ftpvault secret set-password --stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			var password string
			if fromStdin {
				password, err = readLine(app.In)
			} else {
				password, err = promptPassword(app)
			}
			if err != nil {
				return err
			}
			if err := app.Schema.SetSecretPassword(cmd.Context(), schema.KeyPassword, password); err != nil {
				return err
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"key": schema.KeyPassword,
					"set": true,
				})
			}
			fmt.Fprintf(app.Out, "%s %s\n", app.SuccessColor("Stored digest for"), schema.KeyPassword)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the password from the first line of standard input")

	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads the password twice from the terminal without echo.
func promptPassword(app *App) (string, error) {
	f, ok := app.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errors.New("standard input is not a terminal (use --stdin)")
	}
	fd := int(f.Fd())

	fmt.Fprint(app.Err, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(app.Err)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(app.Err, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(app.Err)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
