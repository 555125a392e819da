package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moviestream/internal/catalog"
	"moviestream/internal/localcache"
	"moviestream/internal/logging"
	"moviestream/internal/notifications"
	"moviestream/internal/services"
	"moviestream/internal/sheets"
)

// Writer sends mutations to the remote source.
type Writer interface {
	CanWrite() bool
	Write(ctx context.Context, action string, movie catalog.Movie) (sheets.WriteResult, error)
}

// RemoteStatus describes what happened to the remote half of a mutation.
type RemoteStatus string

const (
	RemoteConfirmed RemoteStatus = "confirmed"
	RemoteUnknown   RemoteStatus = "unknown"
	RemoteFailed    RemoteStatus = "failed"
	RemoteSkipped   RemoteStatus = "skipped"
)

// MutationResult reports a committed mutation. The local commit always
// happened; Degraded is set when the remote write failed.
type MutationResult struct {
	Movie    catalog.Movie
	Remote   RemoteStatus
	Degraded bool
	Removed  bool
	Message  string
}

// Gateway applies create, update, and delete with write-through-with-
// degradation: the remote write is attempted first and the local commit
// happens regardless of its outcome.
type Gateway struct {
	store          *catalog.Store
	cache          localcache.Store
	writer         Writer
	notifier       notifications.Service
	logger         *slog.Logger
	propagateEdits bool
	writeTimeout   time.Duration
}

// GatewayConfig carries the collaborators of a Gateway.
type GatewayConfig struct {
	Store          *catalog.Store
	Cache          localcache.Store
	Writer         Writer
	Notifier       notifications.Service
	Logger         *slog.Logger
	PropagateEdits bool
	WriteTimeout   time.Duration
}

// NewGateway builds a gateway over store.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultFetchTimeout
	}
	return &Gateway{
		store:          cfg.Store,
		cache:          cfg.Cache,
		writer:         cfg.Writer,
		notifier:       notifier,
		logger:         logging.NewComponentLogger(logger, "gateway"),
		propagateEdits: cfg.PropagateEdits,
		writeTimeout:   writeTimeout,
	}
}

// Create validates movie, attempts the remote write, then assigns the next id,
// prepends the movie, and persists the catalog. After validation the only
// error is a local persistence failure, in which case the in-memory commit is
// kept and the result is still returned.
func (g *Gateway) Create(ctx context.Context, movie catalog.Movie) (MutationResult, error) {
	ctx, _ = withRequest(ctx, "create")
	movie, err := validate(movie)
	if err != nil {
		return MutationResult{}, err
	}
	movie.ID = 0

	remote, remoteMsg := g.writeRemote(ctx, sheets.ActionCreate, movie, true)

	var saveErr error
	_ = g.store.Apply(func(c catalog.Catalog) (catalog.Catalog, error) {
		movie.ID = c.NextID()
		next := append(catalog.Catalog{movie}, c...)
		saveErr = g.save(ctx, next)
		return next, nil
	})
	saveErr = g.reportSaveFailure(ctx, saveErr)

	res := g.result(movie, remote, remoteMsg, "added")
	logging.WithContext(ctx, g.logger).Info("movie created",
		logging.Int(logging.FieldMovieID, movie.ID),
		logging.String("title", movie.Title),
		logging.String("remote", string(remote)))
	return res, saveErr
}

// Update replaces the movie with id in place. An unknown id returns
// services.ErrNotFound and changes nothing.
func (g *Gateway) Update(ctx context.Context, id int, movie catalog.Movie) (MutationResult, error) {
	ctx, _ = withRequest(ctx, "update")
	movie, err := validate(movie)
	if err != nil {
		return MutationResult{}, err
	}
	movie.ID = id
	if _, ok := g.store.Catalog().Find(id); !ok {
		return MutationResult{}, notFound("update", id)
	}

	remote, remoteMsg := g.writeRemote(ctx, sheets.ActionUpdate, movie, g.propagateEdits)

	var saveErr error
	err = g.store.Apply(func(c catalog.Catalog) (catalog.Catalog, error) {
		idx := c.Index(id)
		if idx < 0 {
			return nil, notFound("update", id)
		}
		c[idx] = movie
		saveErr = g.save(ctx, c)
		return c, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	saveErr = g.reportSaveFailure(ctx, saveErr)

	logging.WithContext(ctx, g.logger).Info("movie updated",
		logging.Int(logging.FieldMovieID, id),
		logging.String("remote", string(remote)))
	return g.result(movie, remote, remoteMsg, "updated"), saveErr
}

// Delete removes the movie with id. Deleting an unknown id is a no-op that
// reports Removed=false without touching the cache or the remote source.
func (g *Gateway) Delete(ctx context.Context, id int) (MutationResult, error) {
	ctx, _ = withRequest(ctx, "delete")
	existing, ok := g.store.Catalog().Find(id)
	if !ok {
		return MutationResult{Remote: RemoteSkipped, Message: fmt.Sprintf("No movie with id %d.", id)}, nil
	}

	remote, remoteMsg := g.writeRemote(ctx, sheets.ActionDelete, existing, g.propagateEdits)

	var (
		saveErr error
		removed bool
	)
	_ = g.store.Apply(func(c catalog.Catalog) (catalog.Catalog, error) {
		idx := c.Index(id)
		if idx < 0 {
			return c, nil
		}
		removed = true
		next := append(c[:idx:idx], c[idx+1:]...)
		saveErr = g.save(ctx, next)
		return next, nil
	})
	saveErr = g.reportSaveFailure(ctx, saveErr)

	res := g.result(existing, remote, remoteMsg, "deleted")
	res.Removed = removed
	logging.WithContext(ctx, g.logger).Info("movie deleted",
		logging.Int(logging.FieldMovieID, id),
		logging.Bool("removed", removed),
		logging.String("remote", string(remote)))
	return res, saveErr
}

func (g *Gateway) writeRemote(ctx context.Context, action string, movie catalog.Movie, enabled bool) (RemoteStatus, string) {
	if !enabled || g.writer == nil || !g.writer.CanWrite() {
		return RemoteSkipped, ""
	}
	writeCtx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	res, err := g.writer.Write(writeCtx, action, movie)
	if err != nil || res.Outcome == sheets.OutcomeFailed {
		msg := strings.TrimSpace(res.Message)
		if msg == "" {
			msg = services.Describe(err)
		}
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "remote write failed", "remote_write_failed",
			logging.String("action", action),
			logging.Int(logging.FieldMovieID, movie.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check remote.write_url and the script deployment"),
			logging.String(logging.FieldImpact, "change kept locally only"))
		if notifyErr := g.notifier.NotifyWriteFailed(ctx, action, movie.Title, err); notifyErr != nil {
			g.logger.Debug("write failure notification failed", logging.Error(notifyErr))
		}
		return RemoteFailed, msg
	}
	if res.Outcome == sheets.OutcomeUnknown {
		return RemoteUnknown, res.Message
	}
	return RemoteConfirmed, res.Message
}

// save runs inside Store.Apply. Failures are reported by reportSaveFailure
// after the store lock is released.
func (g *Gateway) save(ctx context.Context, c catalog.Catalog) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Save(ctx, c)
}

func (g *Gateway) reportSaveFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	logging.WarnWithContext(logging.WithContext(ctx, g.logger), "failed to persist catalog", "cache_save_failed",
		logging.Error(err),
		logging.String("path", g.cache.Location()),
		logging.String(logging.FieldImpact, "change is lost when the process exits"))
	if notifyErr := g.notifier.NotifyCacheFailed(ctx, g.cache.Location(), err); notifyErr != nil {
		g.logger.Debug("cache failure notification failed", logging.Error(notifyErr))
	}
	return fmt.Errorf("persist catalog: %w", err)
}

func (g *Gateway) result(movie catalog.Movie, remote RemoteStatus, remoteMsg, verb string) MutationResult {
	res := MutationResult{Movie: movie, Remote: remote, Degraded: remote == RemoteFailed}
	switch remote {
	case RemoteConfirmed:
		res.Message = fmt.Sprintf("Movie %s successfully.", verb)
	case RemoteUnknown:
		res.Message = fmt.Sprintf("Movie %s; sent to the catalog source, outcome unknown.", verb)
	case RemoteFailed:
		res.Message = fmt.Sprintf("Movie %s locally; could not save to the catalog source (%s).", verb, remoteMsg)
	default:
		res.Message = fmt.Sprintf("Movie %s locally.", verb)
	}
	return res
}

func validate(movie catalog.Movie) (catalog.Movie, error) {
	movie = movie.Normalized()
	var missing []string
	if movie.Title == "" {
		missing = append(missing, "title")
	}
	if movie.Genre == "" {
		missing = append(missing, "genre")
	}
	if len(missing) > 0 {
		return movie, services.Wrap(services.ErrValidation, "gateway", "validate", strings.Join(missing, " and ")+" required", nil)
	}
	return movie, nil
}

func notFound(op string, id int) error {
	return services.Wrap(services.ErrNotFound, "gateway", op, fmt.Sprintf("movie %d", id), nil)
}

// IsNotFound reports whether err marks a missing movie.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
