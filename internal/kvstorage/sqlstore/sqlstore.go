// Package sqlstore implements kvstorage.KVStore on a SQLite table with one
// row per key. Every write is a single statement or transaction, so readers
// in other processes never observe a partial update.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ftpvault/internal/kvstorage"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
	path string
}

// WatchFiles returns the files that change when a transaction commits.
// In WAL mode commits are appended to "<db>-wal" and only reach the main
// file at a checkpoint.
func WatchFiles(dbPath string) []string {
	return []string{dbPath, dbPath + "-wal"}
}

// New opens (or creates) the SQLite file at dbPath and ensures the schema.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, kvstorage.Unavailable("create db directory", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, kvstorage.Unavailable("open sqlite", err)
	}
	// SQLite only supports one writer; one connection avoids SQLITE_BUSY inside the process.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: dbPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, kvstorage.Unavailable("migrate", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

const upsert = `INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := kvstorage.ValidateKey(key); err != nil {
		return "", err
	}
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
		}
		return "", classify("get "+key, err)
	}
	return value, nil
}

// Set stores a value for the given key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, upsert, key, value, time.Now().Unix()); err != nil {
		return classify("set "+key, err)
	}
	return nil
}

// SetAll writes every entry inside one transaction.
func (s *Store) SetAll(ctx context.Context, entries map[string]string) error {
	for k := range entries {
		if err := kvstorage.ValidateKey(k); err != nil {
			return err
		}
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	now := time.Now().Unix()
	for _, k := range kvstorage.SortedKeys(entries) {
		if _, err := tx.ExecContext(ctx, upsert, k, entries[k], now); err != nil {
			tx.Rollback()
			return classify("set "+k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// Delete removes a key and its value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return classify("delete "+key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete "+key, err)
	}
	if n == 0 {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return nil
}

// List returns all entries.
func (s *Store) List(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM entries ORDER BY key`)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, classify("list", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

// classify maps driver failures (locked database, unreadable file, I/O
// errors) to ErrStoreUnavailable. Context errors pass through unchanged.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return kvstorage.Unavailable(op, err)
}

// Compile-time checks.
var (
	_ kvstorage.KVStore = (*Store)(nil)
	_ kvstorage.Batcher = (*Store)(nil)
)
