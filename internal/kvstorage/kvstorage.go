// Package kvstorage defines the key-value contract shared by the serving
// process and any supervisor or status reader. Values are strings; numeric
// values are stored as decimal text.
//
// Every backend guarantees that a Set is atomic with respect to readers in
// other processes: a reader sees either the old value or the new one, never
// a torn record.
package kvstorage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// KVStore defines the interface for durable key-value persistence.
type KVStore interface {
	// Get retrieves the value for the given key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value for the given key, creating the key if needed.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key and its value.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns a snapshot of every entry in the store.
	List(ctx context.Context) (map[string]string, error)
}

// Batcher is implemented by stores that can write several keys as one
// atomic unit.
type Batcher interface {
	SetAll(ctx context.Context, entries map[string]string) error
}

// SetAll writes entries through store. When store implements Batcher the
// write is a single atomic operation; otherwise keys are written one by one
// in the order given by keys, or sorted order when keys is nil.
func SetAll(ctx context.Context, store KVStore, entries map[string]string, keys ...string) error {
	if b, ok := store.(Batcher); ok {
		return b.SetAll(ctx, entries)
	}
	if len(keys) == 0 {
		keys = SortedKeys(entries)
	}
	for _, k := range keys {
		v, ok := entries[k]
		if !ok {
			continue
		}
		if err := store.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateKey checks that a key is non-empty and free of bytes that would
// break a line-oriented or argv-based backing format.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty: %w", ErrInvalidKey)
	}
	if strings.ContainsAny(key, "\n\r\x00= \t") {
		return fmt.Errorf("key %q contains a separator or control character: %w", key, ErrInvalidKey)
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
