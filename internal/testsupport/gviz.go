package testsupport

import (
	"encoding/json"
	"strings"
)

const (
	gvizPrefix = "/*O_o*/\ngoogle.visualization.Query.setResponse("
	gvizSuffix = ");"
)

// HeaderRow is the column header row every published catalog sheet starts with.
var HeaderRow = []any{"Title", "Year", "Rating", "Genre", "Description", "Poster URL", "Stream URL", "Download URL"}

// Envelope wraps rows in a gviz response body. Each row is a list of cell
// values; a nil value becomes a null cell. The header row is not added.
func Envelope(rows ...[]any) string {
	type cell struct {
		V any `json:"v"`
	}
	type row struct {
		C []*cell `json:"c"`
	}
	tableRows := make([]row, 0, len(rows))
	for _, values := range rows {
		cells := make([]*cell, 0, len(values))
		for _, value := range values {
			if value == nil {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, &cell{V: value})
		}
		tableRows = append(tableRows, row{C: cells})
	}
	payload := map[string]any{
		"version": "0.6",
		"status":  "ok",
		"table":   map[string]any{"rows": tableRows},
	}
	return Wrap(payload)
}

// Wrap encodes payload as JSON inside the gviz envelope.
func Wrap(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	var b strings.Builder
	b.WriteString(gvizPrefix)
	b.Write(data)
	b.WriteString(gvizSuffix)
	return b.String()
}
