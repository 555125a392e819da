package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"moviestream/internal/catalog"
	"moviestream/internal/engine"
)

const (
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiReset  = "\033[0m"
)

type listOutput struct {
	Tier       string           `json:"tier"`
	Diagnostic string           `json:"diagnostic,omitempty"`
	Criteria   catalog.Criteria `json:"criteria"`
	Total      int              `json:"total"`
	Movies     catalog.Catalog  `json:"movies"`
}

type mutationOutput struct {
	Movie    catalog.Movie       `json:"movie"`
	Remote   engine.RemoteStatus `json:"remote"`
	Degraded bool                `json:"degraded"`
	Removed  bool                `json:"removed,omitempty"`
	Message  string              `json:"message"`
}

func renderMovies(movies catalog.Catalog) string {
	if len(movies) == 0 {
		return "No movies match."
	}
	rows := make([][]string, 0, len(movies))
	for _, m := range movies {
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			m.Title,
			m.Year,
			m.Rating,
			m.Genre,
		})
	}
	return renderTable(movieColumns, rows)
}

func renderMovieDetail(m catalog.Movie) string {
	rows := [][]string{
		{"ID", strconv.Itoa(m.ID)},
		{"Title", m.Title},
		{"Year", m.Year},
		{"Rating", m.Rating},
		{"Genre", m.Genre},
		{"Description", m.Description},
		{"Poster", m.PosterURL},
		{"Stream", m.StreamURL},
		{"Download", m.DownloadURL},
	}
	return renderTable(detailColumns, rows)
}

// printDiagnostic writes a fallback diagnostic to w, highlighted on terminals.
func printDiagnostic(w io.Writer, diagnostic string) {
	if diagnostic == "" {
		return
	}
	if shouldColorize(w) {
		fmt.Fprintf(w, "%s%s%s\n", ansiYellow, diagnostic, ansiReset)
		return
	}
	fmt.Fprintln(w, diagnostic)
}

func printMutation(w io.Writer, res engine.MutationResult) {
	color := ansiGreen
	if res.Degraded {
		color = ansiYellow
	}
	if shouldColorize(w) {
		fmt.Fprintf(w, "%s%s%s\n", color, res.Message, ansiReset)
		return
	}
	fmt.Fprintln(w, res.Message)
}

func toMutationOutput(res engine.MutationResult) mutationOutput {
	return mutationOutput{
		Movie:    res.Movie,
		Remote:   res.Remote,
		Degraded: res.Degraded,
		Removed:  res.Removed,
		Message:  res.Message,
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
