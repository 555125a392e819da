// Package services defines shared utilities consumed by the catalog engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and operation names
//     for logging.
//   - Structured error markers plus the Wrap helper so transport, parse, and
//     write failures can be classified with errors.Is wherever they surface.
//   - Describe, which turns a classified error into the short phrase shown in
//     degradation diagnostics.
//
// Use these helpers when wiring new components so failure reporting stays
// uniform across the fetch, resolve, and mutate paths.
package services
