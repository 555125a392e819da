package localcache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"moviestream/internal/logging"
)

const defaultWatchDebounce = 150 * time.Millisecond

// Watch calls onChange whenever the store's backing file changes, coalescing
// bursts within debounce into one call. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself because atomic
// saves replace the file through a rename.
func Watch(ctx context.Context, store Store, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	if store == nil || onChange == nil {
		return fmt.Errorf("watch: store and callback required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "localcache")
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	target := store.Location()
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("watching catalog cache", logging.String("path", target))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, target) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("cache watcher error",
				logging.String(logging.FieldEventType, "cache_watch_error"),
				logging.Error(err),
				logging.String(logging.FieldImpact, "some cache changes may be missed"))
		case <-timer.C:
			onChange()
		}
	}
}

func relevantEvent(event fsnotify.Event, target string) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	target = filepath.Clean(target)
	if name == target {
		return true
	}
	// sqlite commits land in the write-ahead log first.
	return strings.HasPrefix(name, target+"-wal")
}
