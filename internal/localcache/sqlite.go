package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"moviestream/internal/catalog"
	"moviestream/internal/logging"
)

const (
	sqliteFileName          = "catalog.db"
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the catalog as one row of a key/value table in
// <dir>/catalog.db.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	key    string
	logger *slog.Logger
}

// OpenSQLite opens or creates the cache database.
func OpenSQLite(dir, key string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	dbPath := filepath.Join(dir, sqliteFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		path:   dbPath,
		key:    key,
		logger: logging.NewComponentLogger(logger, "localcache"),
	}, nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Load reads the cached catalog row.
func (s *SQLiteStore) Load(ctx context.Context) (Entry, bool, error) {
	ctx = ensureContext(ctx)
	var value, updated string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM kv WHERE key = ?`, s.key).Scan(&value, &updated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache row: %w", err)
	}
	if strings.TrimSpace(value) == "" {
		return Entry{}, false, nil
	}
	movies, err := catalog.Decode([]byte(value))
	if err != nil {
		return Entry{}, false, fmt.Errorf("parse cache row: %w", err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, updated)

	s.logger.Debug("loaded catalog cache",
		logging.Int("movie_count", len(movies)),
		logging.String("path", s.path))
	return Entry{Movies: movies, UpdatedAt: updatedAt}, true, nil
}

// Save upserts the catalog row.
func (s *SQLiteStore) Save(ctx context.Context, movies catalog.Catalog) error {
	ctx = ensureContext(ctx)
	data, err := catalog.Encode(movies)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			s.key, string(data), now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	s.logger.Debug("saved catalog cache",
		logging.Int("movie_count", len(movies)),
		logging.String("path", s.path))
	return nil
}

// Clear deletes the catalog row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.key)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete cache row: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
