package config

import (
	"fmt"
	"strings"
)

var (
	validBackends  = []string{BackendFile, BackendSQLite, BackendHelper}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

// Validate checks opts and returns an error describing every problem found,
// or nil if the options are usable.
func Validate(opts Options) error {
	var errs []string

	if opts.DataDir == "" {
		errs = append(errs, "data directory cannot be empty")
	}
	if !contains(validBackends, opts.Backend) {
		errs = append(errs, fmt.Sprintf("backend: invalid value %q (allowed: %s)",
			opts.Backend, strings.Join(validBackends, ", ")))
	}
	if opts.Backend == BackendHelper && len(opts.HelperCommand) == 0 {
		errs = append(errs, fmt.Sprintf("backend helper requires a helper command (%s or --helper)", EnvHelper))
	}
	if opts.HelperTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("helper timeout must be positive, got %s", opts.HelperTimeout))
	}
	if !contains(validLogLevels, opts.LogLevel) {
		errs = append(errs, fmt.Sprintf("log level: invalid value %q (allowed: %s)",
			opts.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
