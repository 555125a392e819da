// Command moviestream browses and edits the movie catalog from a terminal.
//
// Every command resolves the catalog the same way the engine does: the
// published spreadsheet first, then the local cache, then the bundled
// defaults. --offline skips the spreadsheet.
package main
