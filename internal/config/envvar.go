package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variable names for ftpvault configuration.
const (
	EnvDataDir       = "FTPVAULT_DIR"            // Root data directory
	EnvStore         = "FTPVAULT_STORE"          // Store file path
	EnvBackend       = "FTPVAULT_BACKEND"        // file, sqlite or helper
	EnvHelper        = "FTPVAULT_HELPER"         // Helper command, space separated
	EnvHelperTimeout = "FTPVAULT_HELPER_TIMEOUT" // Go duration, e.g. "3s"
	EnvLogLevel      = "FTPVAULT_LOG_LEVEL"      // debug, info, warn, error
)

// ApplyEnvOverrides overrides fields of opts from the environment.
// Flags are applied after this, so an explicit flag wins.
func ApplyEnvOverrides(opts *Options) error {
	if v := os.Getenv(EnvDataDir); v != "" {
		opts.DataDir = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		opts.StoreFile = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		opts.Backend = v
	}
	if v := os.Getenv(EnvHelper); v != "" {
		opts.HelperCommand = strings.Fields(v)
	}
	if v := os.Getenv(EnvHelperTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHelperTimeout, err)
		}
		opts.HelperTimeout = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		opts.LogLevel = v
	}
	return nil
}
