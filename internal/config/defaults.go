package config

const (
	defaultCacheDirFallback      = "~/.local/share/moviestream"
	defaultCacheBackend          = "file"
	defaultCacheKey              = "moviestream-movies"
	defaultWriteFormat           = "json"
	defaultRemoteTimeoutSeconds  = 15
	defaultFetchRetries          = 0
	defaultUserAgent             = "MovieStream-Go/0.1.0"
	defaultGenre                 = "all"
	defaultNotifyTimeoutSeconds  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	sheetsGvizURLTemplate        = "https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:json"
	envReadURL                   = "MOVIESTREAM_READ_URL"
	envWriteURL                  = "MOVIESTREAM_WRITE_URL"
	envNtfyTopic                 = "MOVIESTREAM_NTFY_TOPIC"
	maxFetchRetries              = 5
	maxRemoteTimeoutSeconds      = 300
	maxNotificationTimeoutSecond = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Remote: Remote{
			WriteFormat:    defaultWriteFormat,
			PropagateEdits: true,
			TimeoutSeconds: defaultRemoteTimeoutSeconds,
			FetchRetries:   defaultFetchRetries,
			UserAgent:      defaultUserAgent,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
			Dir:     defaultCacheDir(),
			Key:     defaultCacheKey,
		},
		Catalog: Catalog{
			DefaultGenre: defaultGenre,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
			Degraded:       true,
			WriteFailures:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
