package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ftpvault/internal/kvstorage"
	"ftpvault/internal/kvstorage/filesystem"
)

// newKVHelperCmd creates the kv-helper command: the process side of the
// helper backend, storing entries in a flat file.
func newKVHelperCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "kv-helper",
		Short:  "Key/value helper process for the helper backend",
		Hidden: true,
		Long: `Serve one key/value operation on a flat store file and exit.

Values are base64 encoded on the command line and on standard output.
A missing key exits with status 3.

  kv-helper read   <file> <key>
  kv-helper write  <file> <key> <base64-value>
  kv-helper delete <file> <key>
  kv-helper list   <file>

Use it as the helper backend with:
  FTPVAULT_BACKEND=helper FTPVAULT_HELPER="ftpvault kv-helper"`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:  "read <file> <key>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := filesystem.New(args[0])
			if err != nil {
				return err
			}
			v, err := store.Get(cmd.Context(), args[1])
			if err != nil {
				return helperExit(err)
			}
			fmt.Fprintln(helperOut(provider), base64.StdEncoding.EncodeToString([]byte(v)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:  "write <file> <key> <base64-value>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := base64.StdEncoding.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("decoding value: %w", err)
			}
			store, err := filesystem.New(args[0])
			if err != nil {
				return err
			}
			if err := store.Init(cmd.Context()); err != nil {
				return err
			}
			return helperExit(store.Set(cmd.Context(), args[1], string(raw)))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:  "delete <file> <key>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := filesystem.New(args[0])
			if err != nil {
				return err
			}
			return helperExit(store.Delete(cmd.Context(), args[1]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:  "list <file>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := filesystem.New(args[0])
			if err != nil {
				return err
			}
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := helperOut(provider)
			for _, k := range kvstorage.SortedKeys(all) {
				fmt.Fprintf(out, "%s %s\n", k, base64.StdEncoding.EncodeToString([]byte(all[k])))
			}
			return nil
		},
	})

	return cmd
}

func helperOut(provider *AppProvider) io.Writer {
	if provider.Out == nil {
		return os.Stdout
	}
	return provider.Out
}

// errHelperNotFound and errHelperInvalidValue carry the helper protocol's
// exit statuses through ExitCode.
var (
	errHelperNotFound     = errors.New("key not found")
	errHelperInvalidValue = errors.New("value cannot be stored")
)

func helperExit(err error) error {
	switch {
	case errors.Is(err, kvstorage.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", errHelperNotFound, err)
	case errors.Is(err, kvstorage.ErrInvalidValue):
		return fmt.Errorf("%w: %w", errHelperInvalidValue, err)
	}
	return err
}
