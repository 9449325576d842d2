package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ftpvault/internal/kvstorage"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestNew_UnsupportedExtension(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "store.json")); err == nil {
		t.Fatal("New with .json extension should fail")
	}
}

func TestSetAndGet(t *testing.T) {
	for _, name := range []string{"store.toml", "store.yaml"} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, name)
			ctx := context.Background()

			if err := s.Set(ctx, "ftp_username", "alice"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, "ftp_username")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != "alice" {
				t.Errorf("Get = %q, want %q", got, "alice")
			}
		})
	}
}

func TestSet_Overwrite(t *testing.T) {
	s := newTestStore(t, "store.toml")
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set v1: %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set v2: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v2" {
		t.Errorf("Get = %q, want %q", got, "v2")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, "store.toml")

	_, err := s.Get(context.Background(), "nonexistent")
	if !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestGet_MissingFileIsEmpty(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nested", "store.toml"))
	if err != nil {
		t.Fatal(err)
	}
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List = %v, want empty", all)
	}
}

func TestGet_CorruptFileIsUnavailable(t *testing.T) {
	s := newTestStore(t, "store.toml")
	if err := os.WriteFile(s.Path(), []byte("this is = = not toml\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := s.Get(context.Background(), "k")
	if !errors.Is(err, kvstorage.ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, "store.yaml")
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("Get after Delete: error = %v, want ErrKeyNotFound", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	s := newTestStore(t, "store.yaml")

	err := s.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestSet_InvalidKey(t *testing.T) {
	s := newTestStore(t, "store.toml")

	for _, key := range []string{"", "a=b", "a b", "a\nb"} {
		if err := s.Set(context.Background(), key, "v"); !errors.Is(err, kvstorage.ErrInvalidKey) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSetAll(t *testing.T) {
	s := newTestStore(t, "store.toml")
	ctx := context.Background()

	if err := s.Set(ctx, "tls_cert", "selfsigned.pem"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAll(ctx, map[string]string{"ftp_pid": "4242", "ftp_running": "1"}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := map[string]string{"tls_cert": "selfsigned.pem", "ftp_pid": "4242", "ftp_running": "1"}
	if len(all) != len(want) {
		t.Fatalf("List = %v, want %v", all, want)
	}
	for k, v := range want {
		if all[k] != v {
			t.Errorf("%s = %q, want %q", k, all[k], v)
		}
	}
}

func TestAtomicWrite_NoTempFilesLeft(t *testing.T) {
	s := newTestStore(t, "store.toml")

	if err := s.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("unexpected file: %s (temp file not cleaned up?)", e.Name())
		}
	}
}

// Values containing the historical ` = ` separator, quotes, or newlines must
// survive a write and a fresh read from disk.
func TestRoundTrip_BoundaryValues(t *testing.T) {
	values := map[string]string{
		"separator": `a = "b"`,
		"quotes":    `he said "hi"`,
		"backslash": `C:\ftp\root`,
		"newline":   "line one\nline two",
		"empty":     "",
		"unicode":   "pässwörd ✓",
		"hash":      "# not a comment",
	}

	for _, name := range []string{"store.toml", "store.yaml"} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, name)
			ctx := context.Background()
			if err := s.SetAll(ctx, values); err != nil {
				t.Fatalf("SetAll: %v", err)
			}

			reopened, err := New(s.Path())
			if err != nil {
				t.Fatal(err)
			}
			all, err := reopened.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != len(values) {
				t.Fatalf("List has %d entries, want %d: %v", len(all), len(values), all)
			}
			for k, want := range values {
				if all[k] != want {
					t.Errorf("%s = %q, want %q", k, all[k], want)
				}
			}
		})
	}
}

func TestSet_InvalidUTF8(t *testing.T) {
	ctx := context.Background()

	t.Run("store.toml refuses", func(t *testing.T) {
		s := newTestStore(t, "store.toml")
		if err := s.Set(ctx, "ftp_username", "alice"); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, "note", "\xff\xfe"); !errors.Is(err, kvstorage.ErrInvalidValue) {
			t.Fatalf("Set invalid UTF-8: err = %v, want ErrInvalidValue", err)
		}
		if err := s.SetAll(ctx, map[string]string{"ftp_port": "2121", "note": "\xff"}); !errors.Is(err, kvstorage.ErrInvalidValue) {
			t.Fatalf("SetAll invalid UTF-8: err = %v, want ErrInvalidValue", err)
		}

		got, err := s.Get(ctx, "ftp_username")
		if err != nil || got != "alice" {
			t.Fatalf("Get after refused write = %q, %v", got, err)
		}
		if _, err := s.Get(ctx, "ftp_port"); !errors.Is(err, kvstorage.ErrKeyNotFound) {
			t.Errorf("refused SetAll wrote ftp_port: err = %v", err)
		}
		if err := s.Set(ctx, "ftp_port", "2121"); err != nil {
			t.Errorf("Set after refused write: %v", err)
		}
	})

	t.Run("store.yaml round-trips", func(t *testing.T) {
		s := newTestStore(t, "store.yaml")
		if err := s.Set(ctx, "ftp_username", "alice"); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, "note", "\xff\xfe"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "note")
		if err != nil || got != "\xff\xfe" {
			t.Errorf("note = %q, %v", got, err)
		}
		if got, _ := s.Get(ctx, "ftp_username"); got != "alice" {
			t.Errorf("ftp_username = %q", got)
		}
	})
}

func TestTOML_ReadsLegacyBooleanRunning(t *testing.T) {
	s := newTestStore(t, "store.toml")
	ctx := context.Background()
	if err := os.WriteFile(s.Path(), []byte("ftp_running = true\nftp_stale = false\n"), 0600); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all["ftp_running"] != "1" || all["ftp_stale"] != "0" {
		t.Errorf("booleans decoded as %q/%q, want 1/0", all["ftp_running"], all["ftp_stale"])
	}
}

func TestTOML_ReadsLegacyUnquotedPid(t *testing.T) {
	s := newTestStore(t, "zentrox_store.toml")
	legacy := "ftp_pid = 1234\nftp_running = \"1\"\nftp_username = \"alice\"\n"
	if err := os.WriteFile(s.Path(), []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(context.Background(), "ftp_pid")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "1234" {
		t.Errorf("ftp_pid = %q, want %q", got, "1234")
	}
}

func TestTOML_FileFormat(t *testing.T) {
	s := newTestStore(t, "store.toml")
	if err := s.Set(context.Background(), "ftp_username", "alice"); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(raw)); got != `ftp_username = "alice"` {
		t.Errorf("file contents = %q, want %q", got, `ftp_username = "alice"`)
	}
}

// Two handles on the same file stand in for two processes.
func TestConcurrentSet_DifferentKeysIsolation(t *testing.T) {
	s := newTestStore(t, "store.toml")
	ctx := context.Background()

	if err := s.Set(ctx, "ftp_password", "unrelated-digest"); err != nil {
		t.Fatal(err)
	}

	other, err := New(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	const rounds = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := s.Set(ctx, "ftp_pid", fmt.Sprint(i)); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := other.Set(ctx, fmt.Sprintf("key_%d", i), "v"); err != nil {
				errs <- err
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Set: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all["ftp_password"] != "unrelated-digest" {
		t.Errorf("ftp_password = %q, want %q", all["ftp_password"], "unrelated-digest")
	}
	if all["ftp_pid"] != fmt.Sprint(rounds-1) {
		t.Errorf("ftp_pid = %q, want %q", all["ftp_pid"], fmt.Sprint(rounds-1))
	}
	for i := 0; i < rounds; i++ {
		if _, ok := all[fmt.Sprintf("key_%d", i)]; !ok {
			t.Errorf("key_%d lost", i)
		}
	}
}

func TestGet_CancelledContext(t *testing.T) {
	s := newTestStore(t, "store.toml")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get error = %v, want context.Canceled", err)
	}
	if err := s.Set(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Errorf("Set error = %v, want context.Canceled", err)
	}
}
