// Package schema layers typed accessors over a kvstorage.KVStore for the
// three logical namespaces shared by the supervisor and the FTP service:
// Settings, Secrets and ProcessState.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ftpvault/internal/auth"
	"ftpvault/internal/kvstorage"
)

// ProcessStateRecord is the lifecycle pair written by the serving process.
type ProcessStateRecord struct {
	PID     int  `json:"pid"`
	Running bool `json:"running"`
}

// Schema provides typed access to the shared store.
type Schema struct {
	store kvstorage.KVStore
}

// New wraps store.
func New(store kvstorage.KVStore) *Schema {
	return &Schema{store: store}
}

// Store returns the underlying store.
func (s *Schema) Store() kvstorage.KVStore {
	return s.store
}

// Setting returns the value of a setting, its declared default when absent,
// or "" for optional settings without a default. Only storage failures are
// returned as errors.
func (s *Schema) Setting(ctx context.Context, name string) (string, error) {
	if ns, ok := NamespaceOf(name); ok && ns != Settings {
		return "", fmt.Errorf("%s is a %s key: %w", name, ns, ErrWrongNamespace)
	}
	v, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, kvstorage.ErrKeyNotFound) {
			return settingDefaults[name], nil
		}
		return "", fmt.Errorf("reading setting %s: %w", name, err)
	}
	return v, nil
}

// RequiredSetting is Setting for keys the service cannot start without.
// An absent or empty value is ErrMissingRequiredKey.
func (s *Schema) RequiredSetting(ctx context.Context, name string) (string, error) {
	v, err := s.Setting(ctx, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("setting %s: %w", name, ErrMissingRequiredKey)
	}
	return v, nil
}

// SetSetting validates and writes a setting. Secrets and process state
// keys are refused; they have dedicated writers.
func (s *Schema) SetSetting(ctx context.Context, name, value string) error {
	if ns, ok := NamespaceOf(name); ok && ns != Settings {
		return fmt.Errorf("%s is a %s key: %w", name, ns, ErrWrongNamespace)
	}
	if err := ValidateValue(name, value); err != nil {
		return err
	}
	if err := s.store.Set(ctx, name, value); err != nil {
		return fmt.Errorf("writing setting %s: %w", name, err)
	}
	return nil
}

// SecretHash returns the stored digest for a secret. The secret is
// required: absence is ErrMissingRequiredKey, a value that is not a digest
// is ErrInvalidValue.
func (s *Schema) SecretHash(ctx context.Context, name string) (string, error) {
	if ns, ok := NamespaceOf(name); ok && ns != Secrets {
		return "", fmt.Errorf("%s is a %s key: %w", name, ns, ErrWrongNamespace)
	}
	v, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, kvstorage.ErrKeyNotFound) {
			return "", fmt.Errorf("secret %s: %w", name, ErrMissingRequiredKey)
		}
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}
	if v == "" {
		return "", fmt.Errorf("secret %s: %w", name, ErrMissingRequiredKey)
	}
	if !IsDigest(v) {
		return "", fmt.Errorf("secret %s is not a SHA-512 hex digest: %w", name, ErrInvalidValue)
	}
	return v, nil
}

// SetSecretHash stores a digest. Plaintext never reaches this method: the
// value must already be a digest.
func (s *Schema) SetSecretHash(ctx context.Context, name, digest string) error {
	if ns, ok := NamespaceOf(name); ok && ns != Secrets {
		return fmt.Errorf("%s is a %s key: %w", name, ns, ErrWrongNamespace)
	}
	if !IsDigest(digest) {
		return fmt.Errorf("secret %s: refusing to store a value that is not a SHA-512 hex digest: %w", name, ErrInvalidValue)
	}
	if err := s.store.Set(ctx, name, digest); err != nil {
		return fmt.Errorf("writing secret %s: %w", name, err)
	}
	return nil
}

// SetSecretPassword hashes plaintext with auth.Digest and stores only the
// digest. An empty password is refused.
func (s *Schema) SetSecretPassword(ctx context.Context, name, plaintext string) error {
	if plaintext == "" {
		return fmt.Errorf("secret %s: empty password: %w", name, ErrInvalidValue)
	}
	return s.SetSecretHash(ctx, name, auth.Digest(plaintext))
}

// ProcessState reads the pid/running pair. Absent keys read as a stopped
// service with pid 0.
func (s *Schema) ProcessState(ctx context.Context) (ProcessStateRecord, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return ProcessStateRecord{}, fmt.Errorf("reading process state: %w", err)
	}

	var rec ProcessStateRecord
	if v := all[KeyPID]; v != "" {
		if err := ValidateValue(KeyPID, v); err != nil {
			return ProcessStateRecord{}, err
		}
		rec.PID, _ = strconv.Atoi(v)
	}
	if v, ok := all[KeyRunning]; ok && v != "" {
		if err := ValidateValue(KeyRunning, v); err != nil {
			return ProcessStateRecord{}, err
		}
		rec.Running = v == "1"
	}
	return rec, nil
}

// SetProcessState writes pid and running together. Backends that support
// batches write both in one atomic operation. Otherwise the order keeps
// the pair safe for readers: when starting, the pid is written before
// running=1; when stopping, running=0 is written before the pid is cleared.
func (s *Schema) SetProcessState(ctx context.Context, rec ProcessStateRecord) error {
	if rec.PID < 0 {
		return fmt.Errorf("%s: negative pid %d: %w", KeyPID, rec.PID, ErrInvalidValue)
	}
	entries := map[string]string{
		KeyPID:     strconv.Itoa(rec.PID),
		KeyRunning: formatBool(rec.Running),
	}
	order := []string{KeyPID, KeyRunning}
	if !rec.Running {
		order = []string{KeyRunning, KeyPID}
	}
	if err := kvstorage.SetAll(ctx, s.store, entries, order...); err != nil {
		return fmt.Errorf("writing process state: %w", err)
	}
	return nil
}

// ApplyDefaults fills any missing settings with their default values
// without overwriting existing ones.
func (s *Schema) ApplyDefaults(ctx context.Context) error {
	all, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}
	missing := make(map[string]string)
	for k, v := range settingDefaults {
		if _, exists := all[k]; !exists {
			missing[k] = v
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return kvstorage.SetAll(ctx, s.store, missing)
}

// Validate checks every known key present in the store and returns an
// error describing every invalid value found, or nil.
func (s *Schema) Validate(ctx context.Context) error {
	all, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}

	var errs []string
	for _, k := range kvstorage.SortedKeys(all) {
		if err := ValidateValue(k, all[k]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("store validation failed:\n  %s: %w", strings.Join(errs, "\n  "), ErrInvalidValue)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
