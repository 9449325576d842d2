// Package configservice resolves process options into concrete resources:
// absolute paths and an opened kvstorage backend. It is the only place
// that knows which backend implementations exist.
package configservice

import (
	"context"
	"fmt"
	"io"

	"ftpvault/internal/config"
	"ftpvault/internal/kvstorage"
	"ftpvault/internal/kvstorage/filesystem"
	"ftpvault/internal/kvstorage/helperstore"
	"ftpvault/internal/kvstorage/sqlstore"
)

// Resolve applies environment overrides on top of opts, then each of
// overrides in order (command-line flags), validates the result, and
// resolves its paths.
func Resolve(opts config.Options, overrides ...func(*config.Options)) (config.Options, config.Paths, error) {
	if err := config.ApplyEnvOverrides(&opts); err != nil {
		return opts, config.Paths{}, err
	}
	for _, o := range overrides {
		o(&opts)
	}
	if err := config.Validate(opts); err != nil {
		return opts, config.Paths{}, err
	}
	paths, err := config.ResolvePaths(opts)
	if err != nil {
		return opts, config.Paths{}, err
	}
	return opts, paths, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the backend selected by opts at paths.StoreFile. The
// returned Closer releases backend resources and is never nil on success.
func OpenStore(ctx context.Context, opts config.Options, paths config.Paths) (kvstorage.KVStore, io.Closer, error) {
	switch opts.Backend {
	case config.BackendFile, "":
		s, err := filesystem.New(paths.StoreFile)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Init(ctx); err != nil {
			return nil, nil, kvstorage.Unavailable("initialising store", err)
		}
		return s, nopCloser{}, nil
	case config.BackendSQLite:
		s, err := sqlstore.New(paths.StoreFile)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendHelper:
		s, err := helperstore.New(opts.HelperCommand, paths.StoreFile, opts.HelperTimeout)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// WatchFiles lists the files whose changes signal a store update for the
// backend selected by opts. The helper backend's helper writes the store
// file itself.
func WatchFiles(opts config.Options, paths config.Paths) []string {
	if opts.Backend == config.BackendSQLite {
		return sqlstore.WatchFiles(paths.StoreFile)
	}
	return []string{paths.StoreFile}
}
