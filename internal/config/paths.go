package config

import (
	"fmt"
	"path/filepath"
)

// Paths captures resolved locations derived from Options.
type Paths struct {
	DataDir   string // root data directory
	StoreFile string // absolute path of the shared store
	CertDir   string // directory holding TLS certificate files
}

// ResolvePaths turns Options into absolute paths.
func ResolvePaths(opts Options) (Paths, error) {
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving data directory: %w", err)
	}

	store := opts.StoreFile
	if store == "" {
		store = DefaultStoreFile(opts.Backend)
	}
	if !filepath.IsAbs(store) {
		store = filepath.Join(dataDir, store)
	}

	return Paths{
		DataDir:   dataDir,
		StoreFile: filepath.Clean(store),
		CertDir:   filepath.Join(dataDir, "certificates"),
	}, nil
}
