// Package helperstore implements kvstorage.KVStore by invoking an external
// single-purpose helper process for every operation.
//
// Protocol (arguments after the configured command):
//
//	read   <file> <key>          stdout: base64(value); exit 3 if absent
//	write  <file> <key> <b64>    exit 0; exit 4 if the value cannot be stored
//	delete <file> <key>          exit 3 if absent
//	list   <file>                stdout: "<key> <b64>" per line
//
// Values travel base64-encoded so any string is safe on argv and stdout.
// Each call runs under a timeout and an flock on <file>.helper.lock, shared
// for reads and exclusive for writes.
package helperstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ftpvault/internal/kvstorage"
)

// Helper exit statuses besides 0 and generic failure.
const (
	ExitNotFound     = 3 // missing key
	ExitInvalidValue = 4 // value refused by the helper's storage format
)

// DefaultTimeout bounds a single helper invocation.
const DefaultTimeout = 5 * time.Second

// Store implements kvstorage.KVStore through a helper process.
type Store struct {
	command []string
	file    string
	timeout time.Duration
}

// New creates a Store that runs command (program plus leading arguments)
// against file. A zero timeout means DefaultTimeout.
func New(command []string, file string, timeout time.Duration) (*Store, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("helper command cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	return &Store{command: command, file: abs, timeout: timeout}, nil
}

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := kvstorage.ValidateKey(key); err != nil {
		return "", err
	}
	var out []byte
	err := s.withLock(syscall.LOCK_SH, func() error {
		var err error
		out, err = s.run(ctx, "read", s.file, key)
		return err
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
		}
		return "", err
	}
	return decode(strings.TrimSpace(string(out)))
}

// Set stores a value for the given key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	return s.withLock(syscall.LOCK_EX, func() error {
		_, err := s.run(ctx, "write", s.file, key, encode(value))
		return err
	})
}

// SetAll writes every entry while holding the exclusive helper lock, so
// readers going through this package see all of them or none of them.
func (s *Store) SetAll(ctx context.Context, entries map[string]string) error {
	for k := range entries {
		if err := kvstorage.ValidateKey(k); err != nil {
			return err
		}
	}
	return s.withLock(syscall.LOCK_EX, func() error {
		for _, k := range kvstorage.SortedKeys(entries) {
			if _, err := s.run(ctx, "write", s.file, k, encode(entries[k])); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a key and its value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	err := s.withLock(syscall.LOCK_EX, func() error {
		_, err := s.run(ctx, "delete", s.file, key)
		return err
	})
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return err
}

// List returns all entries.
func (s *Store) List(ctx context.Context) (map[string]string, error) {
	var out []byte
	err := s.withLock(syscall.LOCK_SH, func() error {
		var err error
		out, err = s.run(ctx, "list", s.file)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, b64, _ := strings.Cut(line, " ")
		v, err := decode(b64)
		if err != nil {
			return nil, err
		}
		entries[k] = v
	}
	return entries, nil
}

var errNotFound = errors.New("helper reported missing key")

// run invokes the helper once, bounded by s.timeout.
func (s *Store) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	argv := append(append([]string{}, s.command[1:]...), args...)
	cmd := exec.CommandContext(ctx, s.command[0], argv...)
	cmd.WaitDelay = 100 * time.Millisecond
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, kvstorage.Unavailable("helper "+args[0], fmt.Errorf("timed out after %s: %w", s.timeout, ctxErr))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case ExitNotFound:
				return nil, errNotFound
			case ExitInvalidValue:
				return nil, fmt.Errorf("helper %s: %w", args[0], kvstorage.ErrInvalidValue)
			}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%s: %w", msg, err)
		}
		return nil, kvstorage.Unavailable("helper "+args[0], err)
	}
	return stdout.Bytes(), nil
}

// withLock serializes helper invocations across processes.
func (s *Store) withLock(how int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		return kvstorage.Unavailable("creating store directory", err)
	}
	f, err := os.OpenFile(s.file+".helper.lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return kvstorage.Unavailable("opening helper lock", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return kvstorage.Unavailable("acquiring helper lock", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

func encode(v string) string {
	return base64.StdEncoding.EncodeToString([]byte(v))
}

func decode(b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", kvstorage.Unavailable("decoding helper output", err)
	}
	return string(raw), nil
}

// Compile-time checks.
var (
	_ kvstorage.KVStore = (*Store)(nil)
	_ kvstorage.Batcher = (*Store)(nil)
)
