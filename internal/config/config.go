// Package config holds the process-level options of ftpvault: where the
// shared store lives, which backend serves it, and how the process logs.
// Nothing here reads ambient state on its own; callers resolve Options
// once at startup and pass the result into constructors.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendHelper = "helper"
)

// Options are the resolved process options.
type Options struct {
	DataDir       string        // root of all ftpvault state
	StoreFile     string        // store location; relative paths are under DataDir
	Backend       string        // file, sqlite or helper
	HelperCommand []string      // program plus leading args for the helper backend
	HelperTimeout time.Duration // bound on a single helper invocation
	LogLevel      string        // debug, info, warn or error
}

// Default returns the default options.
func Default() Options {
	return Options{
		DataDir:       defaultDataDir(),
		Backend:       BackendFile,
		HelperTimeout: 5 * time.Second,
		LogLevel:      "info",
	}
}

// DefaultStoreFile returns the store file name used when none is configured.
func DefaultStoreFile(backend string) string {
	if backend == BackendSQLite {
		return "store.db"
	}
	return "store.toml"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ftpvault")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ftpvault"
	}
	return filepath.Join(home, ".local", "share", "ftpvault")
}
