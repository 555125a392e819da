package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"moviestream/internal/catalog"
	"moviestream/internal/config"
	"moviestream/internal/localcache"
	"moviestream/internal/logging"
	"moviestream/internal/notifications"
	"moviestream/internal/sheets"
)

// Engine wires the resolver, store, and gateway behind one API.
type Engine struct {
	store     *catalog.Store
	resolver  *Resolver
	gateway   *Gateway
	cache     localcache.Store
	ownsCache bool
	logger    *slog.Logger
	loads     singleflight.Group
}

type options struct {
	logger     *slog.Logger
	notifier   notifications.Service
	httpClient *http.Client
	cache      localcache.Store
	bundled    catalog.Catalog
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNotifier overrides the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// WithHTTPClient overrides the client used for the remote source.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithCache supplies an already open cache. The engine does not close it.
func WithCache(cache localcache.Store) Option {
	return func(o *options) { o.cache = cache }
}

// WithBundled replaces the bundled default catalog.
func WithBundled(c catalog.Catalog) Option {
	return func(o *options) { o.bundled = c.Clone() }
}

// New builds an engine from cfg. The catalog starts empty until Load or
// LoadLocal is called.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: config required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	cache, ownsCache := o.cache, false
	if cache == nil {
		var err error
		cache, err = localcache.Open(cfg, o.logger)
		if err != nil {
			return nil, fmt.Errorf("open local cache: %w", err)
		}
		ownsCache = true
	}

	bundled := o.bundled
	if len(bundled) == 0 {
		var err error
		bundled, err = catalog.LoadBundled(cfg.Catalog.BundledPath)
		if err != nil {
			if ownsCache {
				_ = cache.Close()
			}
			return nil, fmt.Errorf("load bundled catalog: %w", err)
		}
	}

	clientOpts := []sheets.Option{
		sheets.WithWriteFormat(cfg.Remote.WriteFormat),
		sheets.WithOpaqueWrites(cfg.Remote.OpaqueWrites),
		sheets.WithUserAgent(cfg.Remote.UserAgent),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, sheets.WithHTTPClient(o.httpClient))
	} else {
		// Requests are bounded per call by the resolver and gateway contexts.
		clientOpts = append(clientOpts, sheets.WithHTTPClient(&http.Client{}))
	}
	client := sheets.New(cfg.Remote.WriteURL, clientOpts...)

	store := catalog.NewStore(catalog.Criteria{Genre: cfg.Catalog.DefaultGenre})
	return &Engine{
		store: store,
		resolver: NewResolver(ResolverConfig{
			Fetcher:  client,
			ReadURL:  cfg.Remote.ReadURL,
			Cache:    cache,
			Bundled:  bundled,
			Notifier: o.notifier,
			Logger:   o.logger,
			Timeout:  cfg.RemoteTimeout(),
			Retries:  cfg.Remote.FetchRetries,
		}),
		gateway: NewGateway(GatewayConfig{
			Store:          store,
			Cache:          cache,
			Writer:         client,
			Notifier:       o.notifier,
			Logger:         o.logger,
			PropagateEdits: cfg.Remote.PropagateEdits,
			WriteTimeout:   cfg.RemoteTimeout(),
		}),
		cache:     cache,
		ownsCache: ownsCache,
		logger:    logging.NewComponentLogger(o.logger, "engine"),
	}, nil
}

// Load runs a full resolution and installs the result. Calls that overlap an
// in-flight load share its result; a call made after it completes starts a
// new one.
func (e *Engine) Load(ctx context.Context) Resolution {
	return e.load(ctx, "remote", e.resolver.Resolve)
}

// LoadLocal resolves from the cache and bundled tiers only.
func (e *Engine) LoadLocal(ctx context.Context) Resolution {
	return e.load(ctx, "local", e.resolver.ResolveLocal)
}

func (e *Engine) load(ctx context.Context, key string, resolve func(context.Context) Resolution) Resolution {
	if ctx == nil {
		ctx = context.Background()
	}
	// The shared cycle outlives the caller that started it.
	shared := context.WithoutCancel(ctx)
	v, _, _ := e.loads.Do(key, func() (any, error) {
		res := resolve(shared)
		e.store.ReplaceCatalog(res.Catalog, res.Tier, res.Diagnostic)
		return res, nil
	})
	res := v.(Resolution)
	res.Catalog = res.Catalog.Clone()
	return res
}

// Create adds a movie. See Gateway.Create.
func (e *Engine) Create(ctx context.Context, movie catalog.Movie) (MutationResult, error) {
	return e.gateway.Create(ctx, movie)
}

// Update replaces a movie. See Gateway.Update.
func (e *Engine) Update(ctx context.Context, id int, movie catalog.Movie) (MutationResult, error) {
	return e.gateway.Update(ctx, id, movie)
}

// Delete removes a movie. See Gateway.Delete.
func (e *Engine) Delete(ctx context.Context, id int) (MutationResult, error) {
	return e.gateway.Delete(ctx, id)
}

// SetFilter changes the genre filter.
func (e *Engine) SetFilter(genre string) { e.store.SetFilter(genre) }

// SetSearch changes the search term.
func (e *Engine) SetSearch(term string) { e.store.SetSearch(term) }

// View returns the filtered catalog.
func (e *Engine) View() catalog.Catalog { return e.store.DerivedView() }

// Catalog returns the full catalog.
func (e *Engine) Catalog() catalog.Catalog { return e.store.Catalog() }

// Snapshot returns the full store state.
func (e *Engine) Snapshot() catalog.Snapshot { return e.store.Snapshot() }

// Genres returns the genre filter menu for the current catalog.
func (e *Engine) Genres() []string { return catalog.Menu(e.store.Catalog()) }

// Subscribe registers fn for store changes.
func (e *Engine) Subscribe(fn func(catalog.Snapshot)) func() { return e.store.Subscribe(fn) }

// Cache returns the local cache backing the engine.
func (e *Engine) Cache() localcache.Store { return e.cache }

// Close releases the cache when the engine opened it.
func (e *Engine) Close() error {
	if e.ownsCache && e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
