// Package catalog holds the movie data model, the pure genre and search
// filter, and the Store that owns the authoritative catalog together with the
// filter criteria and the derived view.
//
// Store publishes a Snapshot to subscribers after every change so front ends
// can redraw without polling.
package catalog
