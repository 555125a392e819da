package localcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moviestream/internal/catalog"
	"moviestream/internal/config"
	"moviestream/internal/services"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Entry is a persisted catalog snapshot.
type Entry struct {
	Movies    catalog.Catalog
	UpdatedAt time.Time
}

// Store persists one catalog snapshot under a fixed key.
//
// Load reports found=false when nothing has been saved yet. Every backend
// writes atomically, so a reader sees either the previous or the new snapshot.
type Store interface {
	Load(ctx context.Context) (Entry, bool, error)
	Save(ctx context.Context, movies catalog.Catalog) error
	Clear(ctx context.Context) error
	Location() string
	Close() error
}

// Open builds the backend selected by cfg.Cache.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "localcache", "open", "config required", nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", BackendFile:
		return NewFileStore(cfg.Cache.Dir, cfg.Cache.Key, logger), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Cache.Dir, cfg.Cache.Key, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "localcache", "open", fmt.Sprintf("unknown backend %q", cfg.Cache.Backend), nil)
	}
}
