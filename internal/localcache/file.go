package localcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"moviestream/internal/catalog"
	"moviestream/internal/logging"
)

const lockRetryDelay = 20 * time.Millisecond

// FileStore keeps the catalog as a JSON array in <dir>/<key>.json. A sibling
// lock file serializes writers across processes.
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewFileStore returns a file-backed store. The file is created lazily.
func NewFileStore(dir, key string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := filepath.Join(dir, key+".json")
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewComponentLogger(logger, "localcache"),
	}
}

// Location returns the path of the cache file.
func (s *FileStore) Location() string {
	return s.path
}

// Load reads the cached catalog under a shared lock.
func (s *FileStore) Load(ctx context.Context) (Entry, bool, error) {
	if err := s.acquire(ctx, true); err != nil {
		return Entry{}, false, err
	}
	defer s.release()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("stat cache file: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return Entry{}, false, nil
	}
	movies, err := catalog.Decode(data)
	if err != nil {
		return Entry{}, false, fmt.Errorf("parse cache file: %w", err)
	}

	s.logger.Debug("loaded catalog cache",
		logging.Int("movie_count", len(movies)),
		logging.String("path", s.path))
	return Entry{Movies: movies, UpdatedAt: info.ModTime()}, true, nil
}

// Save replaces the cached catalog atomically under an exclusive lock.
func (s *FileStore) Save(ctx context.Context, movies catalog.Catalog) error {
	data, err := catalog.Encode(movies)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := s.acquire(ctx, false); err != nil {
		return err
	}
	defer s.release()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.Debug("saved catalog cache",
		logging.Int("movie_count", len(movies)),
		logging.String("path", s.path))
	return nil
}

// Clear removes the cache file.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := s.acquire(ctx, false); err != nil {
		return err
	}
	defer s.release()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	s.logger.Debug("cleared catalog cache", logging.String("path", s.path))
	return nil
}

// Close is a no-op; locks are released after every call.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) acquire(ctx context.Context, shared bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	// In-process callers share one flock handle, which is not reentrant.
	s.mu.Lock()
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("lock cache file: %w", err)
	}
	if !locked {
		s.mu.Unlock()
		return fmt.Errorf("lock cache file: %s is busy", s.lock.Path())
	}
	return nil
}

func (s *FileStore) release() {
	defer s.mu.Unlock()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release cache lock",
			logging.String(logging.FieldEventType, "cache_unlock_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the stale .lock file if the problem persists"))
	}
}
