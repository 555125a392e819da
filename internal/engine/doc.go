// Package engine synchronizes the movie catalog with its remote source.
//
// A Resolver walks three tiers in order: the published spreadsheet, the local
// cache, and the bundled defaults. It always yields a catalog, reporting why
// it fell back in a Diagnostic. A Gateway applies mutations by attempting the
// remote write and committing locally whatever the outcome. Engine wires both
// around a catalog.Store and serializes overlapping reloads.
package engine
