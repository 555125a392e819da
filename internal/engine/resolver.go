package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"moviestream/internal/catalog"
	"moviestream/internal/localcache"
	"moviestream/internal/logging"
	"moviestream/internal/notifications"
	"moviestream/internal/services"
	"moviestream/internal/sheets"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultRetryBackoff = 250 * time.Millisecond

	reasonNotConfigured = "catalog source not configured"
)

// Fetcher retrieves the raw catalog body from a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (string, error)
}

// Resolution is the outcome of one resolution cycle. Resolve never fails; a
// degraded result carries a human-readable Diagnostic instead.
type Resolution struct {
	Catalog    catalog.Catalog
	Tier       catalog.Tier
	Diagnostic string
	RequestID  string
}

// Degraded reports whether the catalog came from a fallback tier.
func (r Resolution) Degraded() bool {
	return r.Tier != catalog.TierRemote
}

// Resolver walks the remote, local, and bundled tiers in order.
type Resolver struct {
	fetcher  Fetcher
	readURL  string
	cache    localcache.Store
	bundled  catalog.Catalog
	notifier notifications.Service
	logger   *slog.Logger
	timeout  time.Duration
	retries  int
	backoff  time.Duration
}

// ResolverConfig carries the collaborators of a Resolver.
type ResolverConfig struct {
	Fetcher      Fetcher
	ReadURL      string
	Cache        localcache.Store
	Bundled      catalog.Catalog
	Notifier     notifications.Service
	Logger       *slog.Logger
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

// NewResolver builds a resolver. Fetcher and Cache are required.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	bundled := cfg.Bundled.Clone()
	if len(bundled) == 0 {
		bundled = catalog.Bundled()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Resolver{
		fetcher:  cfg.Fetcher,
		readURL:  strings.TrimSpace(cfg.ReadURL),
		cache:    cfg.Cache,
		bundled:  bundled,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "resolver"),
		timeout:  timeout,
		retries:  retries,
		backoff:  backoff,
	}
}

// Resolve produces the freshest catalog available. A successful remote load is
// written through to the local cache.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	ctx, requestID := withRequest(ctx, "resolve")
	logger := logging.WithContext(ctx, r.logger)

	var reason string
	if r.readURL == "" || r.fetcher == nil {
		reason = reasonNotConfigured
	} else {
		movies, err := r.fetchRemote(ctx, logger)
		if err == nil {
			r.persist(ctx, logger, movies)
			logger.Info("catalog resolved",
				logging.String(logging.FieldTier, catalog.TierRemote.String()),
				logging.Int("movie_count", len(movies)))
			return Resolution{Catalog: movies, Tier: catalog.TierRemote, RequestID: requestID}
		}
		reason = services.Describe(err)
		logging.WarnWithContext(logger, "remote catalog unavailable", "remote_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check remote.read_url and that the sheet is published"),
			logging.String(logging.FieldImpact, "falling back to saved movies"))
	}

	res := r.resolveFallback(ctx, logger, reason)
	res.RequestID = requestID
	// Running without a catalog source is a deployment choice, not an outage.
	if res.Degraded() && reason != reasonNotConfigured {
		if err := r.notifier.NotifyDegraded(ctx, res.Tier.String(), res.Diagnostic); err != nil {
			logger.Debug("degraded notification failed", logging.Error(err))
		}
	}
	return res
}

// ResolveLocal skips the remote tier and resolves from the cache, then the
// bundled defaults.
func (r *Resolver) ResolveLocal(ctx context.Context) Resolution {
	ctx, requestID := withRequest(ctx, "resolve_local")
	logger := logging.WithContext(ctx, r.logger)
	res := r.resolveFallback(ctx, logger, "")
	res.RequestID = requestID
	return res
}

func (r *Resolver) resolveFallback(ctx context.Context, logger *slog.Logger, reason string) Resolution {
	if r.cache != nil {
		entry, found, err := r.cache.Load(ctx)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "local catalog unreadable", "cache_load_failed",
				logging.Error(err),
				logging.String("path", r.cache.Location()),
				logging.String(logging.FieldErrorHint, "run `moviestream cache clear` to reset the cache"),
				logging.String(logging.FieldImpact, "falling back to default movies"))
		case found && len(entry.Movies) > 0:
			logger.Info("catalog resolved",
				logging.String(logging.FieldTier, catalog.TierLocal.String()),
				logging.Int("movie_count", len(entry.Movies)))
			return Resolution{
				Catalog:    entry.Movies,
				Tier:       catalog.TierLocal,
				Diagnostic: diagnostic(reason, len(entry.Movies), "saved"),
			}
		}
	}

	movies := r.bundled.Clone()
	r.persist(ctx, logger, movies)
	logger.Info("catalog resolved",
		logging.String(logging.FieldTier, catalog.TierBundled.String()),
		logging.Int("movie_count", len(movies)))
	return Resolution{
		Catalog:    movies,
		Tier:       catalog.TierBundled,
		Diagnostic: diagnostic(reason, len(movies), "default"),
	}
}

// fetchRemote runs Fetch and Parse with the configured bound. Only transport
// failures are retried.
func (r *Resolver) fetchRemote(ctx context.Context, logger *slog.Logger) (catalog.Catalog, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying catalog fetch", logging.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}
		movies, err := r.fetchOnce(ctx)
		if err == nil {
			return movies, nil
		}
		lastErr = err
		if !errors.Is(err, services.ErrTransport) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *Resolver) fetchOnce(ctx context.Context) (catalog.Catalog, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	raw, err := r.fetcher.Fetch(fetchCtx, r.readURL)
	if err != nil {
		return nil, err
	}
	return sheets.Parse(raw)
}

func (r *Resolver) persist(ctx context.Context, logger *slog.Logger, movies catalog.Catalog) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Save(ctx, movies); err != nil {
		logging.WarnWithContext(logger, "failed to persist catalog", "cache_save_failed",
			logging.Error(err),
			logging.String("path", r.cache.Location()),
			logging.String(logging.FieldImpact, "offline fallback may show stale movies"))
		if notifyErr := r.notifier.NotifyCacheFailed(ctx, r.cache.Location(), err); notifyErr != nil {
			logger.Debug("cache failure notification failed", logging.Error(notifyErr))
		}
	}
}

func diagnostic(reason string, count int, kind string) string {
	switch reason {
	case "":
		if kind == "saved" {
			return ""
		}
		return fmt.Sprintf("No saved movies; showing %d %s movies.", count, kind)
	case reasonNotConfigured:
		return fmt.Sprintf("Catalog source not configured; showing %d %s movies.", count, kind)
	default:
		return fmt.Sprintf("Could not load movies from the catalog source (%s); showing %d %s movies.", reason, count, kind)
	}
}

func withRequest(ctx context.Context, operation string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	return services.WithOperation(ctx, operation), requestID
}
