package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"ftpvault/internal/config"
	"ftpvault/internal/ftpservice"
	"ftpvault/internal/kvstorage"
	"ftpvault/internal/kvstorage/helperstore"
	"ftpvault/internal/lifecycle"
	"ftpvault/internal/schema"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"store unavailable", kvstorage.Unavailable("get", errors.New("locked")), ExitStoreUnavailable},
		{"missing key", fmt.Errorf("setting x: %w", schema.ErrMissingRequiredKey), ExitMissingKey},
		{"invalid value", fmt.Errorf("x: %w", schema.ErrInvalidValue), ExitMissingKey},
		{"unstorable value", fmt.Errorf("key %q: %w", "note", kvstorage.ErrInvalidValue), ExitMissingKey},
		{"helper refused value", fmt.Errorf("%w: %w", errHelperInvalidValue, kvstorage.ErrInvalidValue), helperstore.ExitInvalidValue},
		{"invalid options", fmt.Errorf("%w: bad backend", errConfig), ExitMissingKey},
		{"bind", fmt.Errorf("%w: in use", ftpservice.ErrListenBind), ExitListenBind},
		{"fault", fmt.Errorf("%w: nil map", lifecycle.ErrUnexpectedFault), ExitUnexpectedFault},
		{"joined missing keys", errors.Join(
			fmt.Errorf("a: %w", schema.ErrMissingRequiredKey),
			fmt.Errorf("b: %w", schema.ErrMissingRequiredKey)), ExitMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRootCmd_InitThenConfig(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	provider := &AppProvider{Out: &out, Err: &bytes.Buffer{}}
	defer provider.Close()

	root := newRootCmd(provider)
	root.SetArgs([]string{"--data-dir", dir, "init", "--username", "alice"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), filepath.Join(dir, "store.toml")) {
		t.Errorf("init output = %q", out.String())
	}

	app, err := provider.Get()
	if err != nil {
		t.Fatal(err)
	}
	v, err := app.Store.Get(t.Context(), schema.KeyUsername)
	if err != nil || v != "alice" {
		t.Errorf("ftp_username = %q, %v", v, err)
	}
}

func TestRootCmd_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	provider := &AppProvider{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}
	defer provider.Close()

	root := newRootCmd(provider)
	root.SetArgs([]string{"--data-dir", dir, "--backend", "sqlite", "config", "set", "ftp_port", "2121"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}
	app, _ := provider.Get()
	if app.Paths.StoreFile != filepath.Join(dir, "store.db") {
		t.Errorf("StoreFile = %q", app.Paths.StoreFile)
	}
}

func TestRootCmd_InvalidBackend(t *testing.T) {
	provider := &AppProvider{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}
	root := newRootCmd(provider)
	root.SetArgs([]string{"--data-dir", t.TempDir(), "--backend", "etcd", "status"})

	err := root.Execute()
	if code := ExitCode(err); code != ExitMissingKey {
		t.Errorf("ExitCode = %d (err %v), want %d", code, err, ExitMissingKey)
	}
}

func TestRootCmd_EnvSelectsDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)
	var out bytes.Buffer
	provider := &AppProvider{Out: &out, Err: &bytes.Buffer{}}
	defer provider.Close()

	root := newRootCmd(provider)
	root.SetArgs([]string{"status"})
	if err := root.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
	app, _ := provider.Get()
	if app.Paths.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", app.Paths.DataDir, dir)
	}
	if strings.TrimSpace(out.String()) != "stopped" {
		t.Errorf("status = %q", out.String())
	}
}
