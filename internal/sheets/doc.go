// Package sheets reads the movie catalog from a published Google Sheets
// visualization query and sends mutations to the companion write script.
//
// Fetch only moves bytes; Parse owns every decision about whether a body is a
// usable catalog.
package sheets
