package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const projectConfigName = "moviestream.toml"

//go:embed sample_config.toml
var sampleConfig string

// Remote contains the spreadsheet read and write endpoints.
type Remote struct {
	ReadURL        string `toml:"read_url"`
	WriteURL       string `toml:"write_url"`
	SheetID        string `toml:"sheet_id"`
	SheetName      string `toml:"sheet_name"`
	WriteFormat    string `toml:"write_format"`  // "json" or "form"
	OpaqueWrites   bool   `toml:"opaque_writes"` // write responses are never read
	PropagateEdits bool   `toml:"propagate_edits"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	FetchRetries   int    `toml:"fetch_retries"`
	UserAgent      string `toml:"user_agent"`
}

// Cache contains configuration for the local catalog cache.
type Cache struct {
	Backend string `toml:"backend"` // "file" or "sqlite"
	Dir     string `toml:"dir"`
	Key     string `toml:"key"`
}

// Catalog contains presentation defaults for the catalog store.
type Catalog struct {
	DefaultGenre string `toml:"default_genre"`
	BundledPath  string `toml:"bundled_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Degraded       bool   `toml:"degraded"`
	WriteFailures  bool   `toml:"write_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for MovieStream.
//
// Configuration sections by subsystem:
//   - Remote: spreadsheet read/write endpoints and transport behaviour
//   - Cache: local tier backend and location
//   - Catalog: default filter and bundled defaults override
//   - Notifications: ntfy alerts for degraded loads and failed writes
//   - Logging: log format, level, and optional file
type Config struct {
	Remote        Remote        `toml:"remote"`
	Cache         Cache         `toml:"cache"`
	Catalog       Catalog       `toml:"catalog"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/moviestream/config.toml")
}

// Load reads the configuration at path, or when path is empty the first
// existing file among DefaultConfigPath and ./moviestream.toml. The bool
// reports whether a file was found; defaults apply when it was not. The
// returned config is normalized and validated.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				row, col := decodeErr.Position()
				return nil, "", false, fmt.Errorf("parse config %s:%d:%d: %s", resolved, row, col, decodeErr.Error())
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func locate(path string) (string, bool, error) {
	if path = strings.TrimSpace(path); path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(expanded)
		if err != nil {
			return "", false, err
		}
		return expanded, found, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectConfigName} {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if found, _ := isFile(abs); found {
			return abs, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %q is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the cache directory and the log file's parent.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	return nil
}

// RemoteTimeout returns the bound applied to every remote request.
func (c *Config) RemoteTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return defaultRemoteTimeoutSeconds * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	if c.Notifications.RequestTimeout <= 0 {
		return defaultNotifyTimeoutSeconds * time.Second
	}
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// RemoteConfigured reports whether a read endpoint is available.
func (c *Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.Remote.ReadURL) != ""
}

// WritesConfigured reports whether a write endpoint is available.
func (c *Config) WritesConfigured() bool {
	return strings.TrimSpace(c.Remote.WriteURL) != ""
}

// ExpandPath resolves a leading "~" to the home directory and returns an
// absolute path. Empty stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "moviestream")
	}
	return defaultCacheDirFallback
}

// CreateSample writes the commented sample configuration to path, replacing
// any existing file.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
