package testsupport

import (
	"path/filepath"
	"testing"

	"moviestream/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.Logging.File = ""
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Remote.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithReadURL points the remote tier at url.
func WithReadURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.ReadURL = url
	}
}

// WithWriteURL enables remote writes against url.
func WithWriteURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.WriteURL = url
	}
}

// WithCacheBackend selects the local cache backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithNtfyTopic enables notifications against the supplied topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithConfig applies an arbitrary mutation to the config.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		if fn != nil {
			fn(b.cfg)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Cache.Dir)
}
