// Package notifications delivers catalog alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Alerts fire when the catalog is served from a fallback tier, when a
// mutation could not be written to the spreadsheet, and when the local cache
// could not be saved.
package notifications
