package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRemote() error {
	if err := validateHTTPURL("remote.read_url", c.Remote.ReadURL); err != nil {
		return err
	}
	if err := validateHTTPURL("remote.write_url", c.Remote.WriteURL); err != nil {
		return err
	}
	switch c.Remote.WriteFormat {
	case "json", "form":
	default:
		return fmt.Errorf("remote.write_format: unsupported value %q (use json or form)", c.Remote.WriteFormat)
	}
	if c.Remote.TimeoutSeconds > maxRemoteTimeoutSeconds {
		return fmt.Errorf("remote.timeout_seconds must be at most %d", maxRemoteTimeoutSeconds)
	}
	if c.Remote.FetchRetries > maxFetchRetries {
		return fmt.Errorf("remote.fetch_retries must be at most %d", maxFetchRetries)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (use file or sqlite)", c.Cache.Backend)
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set")
	}
	if strings.ContainsAny(c.Cache.Key, `/\`) || c.Cache.Key == "." || c.Cache.Key == ".." {
		return fmt.Errorf("cache.key %q must not contain path separators", c.Cache.Key)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout > maxNotificationTimeoutSecond {
		return fmt.Errorf("notifications.request_timeout must be at most %d", maxNotificationTimeoutSecond)
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if err := validateHTTPURL("notifications.ntfy_topic", topic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}
