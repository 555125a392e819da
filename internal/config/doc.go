// Package config loads, normalizes, and validates MovieStream configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MOVIESTREAM_READ_URL. The Config type centralizes the endpoint URLs, cache
// location, and notification settings the engine and CLI need, so they are
// injected at construction instead of living in package-level state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a derived read URL, and clear validation errors.
package config
