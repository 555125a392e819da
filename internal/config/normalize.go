package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeNotifications()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeRemote() error {
	if value, ok := os.LookupEnv(envReadURL); ok && strings.TrimSpace(value) != "" {
		c.Remote.ReadURL = value
	}
	if value, ok := os.LookupEnv(envWriteURL); ok && strings.TrimSpace(value) != "" {
		c.Remote.WriteURL = value
	}
	c.Remote.ReadURL = strings.TrimSpace(c.Remote.ReadURL)
	c.Remote.WriteURL = strings.TrimSpace(c.Remote.WriteURL)
	c.Remote.SheetID = strings.TrimSpace(c.Remote.SheetID)
	c.Remote.SheetName = strings.TrimSpace(c.Remote.SheetName)

	if c.Remote.ReadURL == "" && c.Remote.SheetID != "" {
		c.Remote.ReadURL = SheetReadURL(c.Remote.SheetID, c.Remote.SheetName)
	}

	c.Remote.WriteFormat = strings.ToLower(strings.TrimSpace(c.Remote.WriteFormat))
	if c.Remote.WriteFormat == "" {
		c.Remote.WriteFormat = defaultWriteFormat
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}
	if c.Remote.FetchRetries < 0 {
		c.Remote.FetchRetries = 0
	}
	c.Remote.UserAgent = strings.TrimSpace(c.Remote.UserAgent)
	if c.Remote.UserAgent == "" {
		c.Remote.UserAgent = defaultUserAgent
	}
	return nil
}

// SheetReadURL derives the gviz JSON export URL for a spreadsheet.
func SheetReadURL(sheetID, sheetName string) string {
	endpoint := fmt.Sprintf(sheetsGvizURLTemplate, url.PathEscape(strings.TrimSpace(sheetID)))
	if name := strings.TrimSpace(sheetName); name != "" {
		endpoint += "&sheet=" + url.QueryEscape(name)
	}
	return endpoint
}

func (c *Config) normalizeCache() error {
	var err error
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = ExpandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	c.Cache.Key = strings.TrimSpace(c.Cache.Key)
	if c.Cache.Key == "" {
		c.Cache.Key = defaultCacheKey
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.DefaultGenre = strings.ToLower(strings.TrimSpace(c.Catalog.DefaultGenre))
	if c.Catalog.DefaultGenre == "" {
		c.Catalog.DefaultGenre = defaultGenre
	}
	if strings.TrimSpace(c.Catalog.BundledPath) != "" {
		var err error
		if c.Catalog.BundledPath, err = ExpandPath(strings.TrimSpace(c.Catalog.BundledPath)); err != nil {
			return fmt.Errorf("catalog.bundled_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(envNtfyTopic); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = ExpandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
