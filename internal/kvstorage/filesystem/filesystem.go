// Package filesystem implements kvstorage.KVStore as a single flat file.
//
// The file holds every entry. Writers take an exclusive flock on a sibling
// lock file, re-read the file (picking up writes from other processes),
// apply the mutation, and atomically replace the file via a temporary file
// and rename. Readers never lock: rename guarantees they observe either the
// previous file or the new one.
package filesystem

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"ftpvault/internal/kvstorage"
)

// Store implements kvstorage.KVStore backed by one TOML or YAML file.
type Store struct {
	path  string
	codec codec
}

// New creates a Store for path. The codec is chosen by extension (.toml,
// .yaml, .yml). The file does not need to exist; it is created on the
// first write.
func New(path string) (*Store, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	return &Store{path: abs, codec: c}, nil
}

// Path returns the absolute path of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Init creates the directory holding the store file.
func (s *Store) Init(ctx context.Context) error {
	return os.MkdirAll(filepath.Dir(s.path), 0700)
}

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := kvstorage.ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := s.readFromDisk()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return v, nil
}

// Set stores a value for the given key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.checkValue(key, value); err != nil {
		return err
	}
	return s.withLock(ctx, func(data map[string]string) error {
		data[key] = value
		return nil
	})
}

// SetAll writes every entry in one locked read-modify-write cycle, so a
// reader sees all of them or none of them.
func (s *Store) SetAll(ctx context.Context, entries map[string]string) error {
	for k, v := range entries {
		if err := kvstorage.ValidateKey(k); err != nil {
			return err
		}
		if err := s.checkValue(k, v); err != nil {
			return err
		}
	}
	return s.withLock(ctx, func(data map[string]string) error {
		for k, v := range entries {
			data[k] = v
		}
		return nil
	})
}

// Delete removes a key and its value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	return s.withLock(ctx, func(data map[string]string) error {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
		}
		delete(data, key)
		return nil
	})
}

// List returns a copy of all entries.
func (s *Store) List(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readFromDisk()
}

// checkValue rejects values the codec cannot write. The value itself is
// left out of the error since it may be a secret.
func (s *Store) checkValue(key, value string) error {
	if err := s.codec.check(value); err != nil {
		return fmt.Errorf("key %q: %v: %w", key, err, kvstorage.ErrInvalidValue)
	}
	return nil
}

// lockPath returns the path to the lock file used for flock-based coordination.
func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withLock acquires an exclusive file lock, re-reads the store from disk,
// calls fn to mutate the entries, then atomically writes them back. If fn
// returns an error nothing is written.
func (s *Store) withLock(ctx context.Context, fn func(map[string]string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return kvstorage.Unavailable("creating store directory", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return kvstorage.Unavailable("opening store lock", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return kvstorage.Unavailable("acquiring store lock", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	data, err := s.readFromDisk()
	if err != nil {
		return err
	}

	if err := fn(data); err != nil {
		return err
	}

	raw, err := s.codec.encode(data)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	// A file that cannot be read back would make every key unreadable.
	if _, err := s.codec.decode(raw); err != nil {
		return fmt.Errorf("encoded store does not decode: %v: %w", err, kvstorage.ErrInvalidValue)
	}
	if err := atomicWrite(s.path, raw); err != nil {
		return kvstorage.Unavailable("writing store", err)
	}
	return nil
}

// readFromDisk loads every entry from the store file. A missing or empty
// file is an empty store.
func (s *Store) readFromDisk() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, kvstorage.Unavailable("reading store", err)
	}
	if len(raw) == 0 {
		return make(map[string]string), nil
	}
	data, err := s.codec.decode(raw)
	if err != nil {
		return nil, kvstorage.Unavailable("parsing store "+s.path, err)
	}
	return data, nil
}

// atomicWrite writes data to a file atomically via a temporary file in the
// same directory, fsync, and rename.
func atomicWrite(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generating random suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randBytes)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best effort cleanup
		return err
	}
	if d, err := os.Open(filepath.Dir(path)); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}

// Compile-time checks.
var (
	_ kvstorage.KVStore = (*Store)(nil)
	_ kvstorage.Batcher = (*Store)(nil)
)
