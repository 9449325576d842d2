package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ftpvault/internal/kvstorage"
	"ftpvault/internal/kvstorage/filesystem"
	"ftpvault/internal/kvstorage/sqlstore"
	"ftpvault/internal/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSchema(t *testing.T) (*schema.Schema, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.toml")
	fs, err := filesystem.New(path)
	if err != nil {
		t.Fatalf("filesystem.New: %v", err)
	}
	return schema.New(fs), path
}

func setState(t *testing.T, s *schema.Schema, pid int, running bool) {
	t.Helper()
	if err := s.SetProcessState(context.Background(), schema.ProcessStateRecord{PID: pid, Running: running}); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		pid     int
		running bool
		alive   bool
		want    Report
	}{
		{"stopped", 0, false, false, Report{}},
		{"running", 100, true, true, Report{Running: true, PID: 100, Alive: true}},
		{"stale", 100, true, false, Report{Running: true, PID: 100, Stale: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSchema(t)
			setState(t, s, tt.pid, tt.running)

			got, err := Snapshot(context.Background(), s, func(int) bool { return tt.alive })
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if got != tt.want {
				t.Errorf("Snapshot = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRouter_Status(t *testing.T) {
	s, _ := newTestSchema(t)
	setState(t, s, 77, true)
	h := NewRouter(s, func(int) bool { return true }, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got != (Report{Running: true, PID: 77, Alive: true}) {
		t.Errorf("report = %+v", got)
	}
}

type downStore struct{ kvstorage.KVStore }

func (downStore) List(ctx context.Context) (map[string]string, error) {
	return nil, kvstorage.Unavailable("list", errors.New("helper timed out"))
}

func TestRouter_StoreUnavailable(t *testing.T) {
	h := NewRouter(schema.New(downStore{}), nil, quietLogger())

	for _, path := range []string{"/status", "/healthz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, rec.Code)
		}
	}
}

func TestRouter_Healthz(t *testing.T) {
	s, _ := newTestSchema(t)
	h := NewRouter(s, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_NotFound(t *testing.T) {
	s, _ := newTestSchema(t)
	h := NewRouter(s, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /status = %d, want 405", rec.Code)
	}
}

func TestWatch_SeesAtomicReplace(t *testing.T) {
	s, path := newTestSchema(t)
	setState(t, s, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changed := make(chan Report, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, quietLogger(), func(ctx context.Context) error {
			rep, err := Snapshot(ctx, s, func(int) bool { return true })
			if err != nil {
				return err
			}
			changed <- rep
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	setState(t, s, 55, true)

	for {
		select {
		case rep := <-changed:
			if rep.Running && rep.PID == 55 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch: %v", err)
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("no change observed for running=1")
		}
	}
}

func TestWatch_CallbackErrorStops(t *testing.T) {
	s, path := newTestSchema(t)
	setState(t, s, 0, false)
	stop := errors.New("stop")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, quietLogger(), func(context.Context) error { return stop })
	}()
	time.Sleep(100 * time.Millisecond)
	setState(t, s, 1, true)

	select {
	case err := <-done:
		if !errors.Is(err, stop) {
			t.Errorf("Watch error = %v, want stop", err)
		}
	case <-ctx.Done():
		t.Fatal("Watch did not return")
	}
}

func TestWatch_SQLiteCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := sqlstore.New(path)
	if err != nil {
		t.Fatalf("sqlstore.New: %v", err)
	}
	defer db.Close()
	s := schema.New(db)
	setState(t, s, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changed := make(chan Report, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, sqlstore.WatchFiles(path), quietLogger(), func(ctx context.Context) error {
			rep, err := Snapshot(ctx, s, func(int) bool { return true })
			if err != nil {
				return err
			}
			changed <- rep
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	setState(t, s, 77, true)

	for {
		select {
		case rep := <-changed:
			if rep.Running && rep.PID == 77 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch: %v", err)
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("no change observed for a committed sqlite write")
		}
	}
}

func TestWatch_NoFiles(t *testing.T) {
	if err := Watch(context.Background(), nil, quietLogger(), func(context.Context) error { return nil }); err == nil {
		t.Error("Watch with no files should fail")
	}
}
