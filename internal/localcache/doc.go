// Package localcache persists the last known catalog so the engine can fall
// back to it when the remote source is unavailable.
//
// Two backends are provided: a JSON file guarded by an advisory file lock, and
// a single-table SQLite database. Watch reports changes made by other
// processes sharing the same cache directory.
package localcache
