package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn each time one of paths is written or replaced, until ctx
// is cancelled or fn returns an error. Parent directories are watched
// rather than the files so that rename-over-write replacements and files
// created later (a SQLite write-ahead log) are seen.
func Watch(ctx context.Context, paths []string, log *slog.Logger, fn func(ctx context.Context) error) error {
	if log == nil {
		log = slog.Default()
	}
	if len(paths) == 0 {
		return errors.New("watch: no files to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] || !isChange(event) {
				continue
			}
			log.Debug("store_changed", "file", event.Name, "op", event.Op.String())
			if err := fn(ctx); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch_error", "error", err)
		}
	}
}

func isChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
