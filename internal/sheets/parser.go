package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"moviestream/internal/catalog"
	"moviestream/internal/services"
)

const (
	// EnvelopePrefix precedes the JSON payload of a gviz response.
	EnvelopePrefix = "/*O_o*/\ngoogle.visualization.Query.setResponse("
	// EnvelopeSuffix follows the JSON payload of a gviz response.
	EnvelopeSuffix = ");"

	envelopeSentinel = "google.visualization.Query.setResponse"
)

// Column positions in a catalog row.
const (
	colTitle = iota
	colYear
	colRating
	colGenre
	colDescription
	colPoster
	colStream
	colDownload
)

type gvizResponse struct {
	Status string      `json:"status"`
	Errors []gvizError `json:"errors"`
	Table  *gvizTable  `json:"table"`
}

type gvizError struct {
	Reason          string `json:"reason"`
	Message         string `json:"message"`
	DetailedMessage string `json:"detailed_message"`
}

type gvizTable struct {
	Rows []*gvizRow `json:"rows"`
}

type gvizRow struct {
	Cells []*gvizCell `json:"c"`
}

type gvizCell struct {
	V any    `json:"v"`
	F string `json:"f"`
}

// Parse turns a raw gviz response into a catalog. The first row is a header.
// Rows without a title are dropped and ids are assigned from 1 in row order.
//
// Errors carry services.ErrNotAccessible when the envelope is missing,
// services.ErrMalformed when the payload cannot be decoded, and
// services.ErrEmptyDataset when no usable row remains.
func Parse(raw string) (catalog.Catalog, error) {
	if !strings.Contains(raw, envelopeSentinel) || len(raw) < len(EnvelopePrefix)+len(EnvelopeSuffix) {
		message := "response is not a published sheet"
		if title := htmlTitle(raw); title != "" {
			message = fmt.Sprintf("%s (page title %q)", message, title)
		}
		return nil, services.Wrap(services.ErrNotAccessible, "sheets", "parse", message, nil)
	}

	payload := raw[len(EnvelopePrefix) : len(raw)-len(EnvelopeSuffix)]
	decoder := json.NewDecoder(strings.NewReader(payload))
	decoder.UseNumber()
	var resp gvizResponse
	if err := decoder.Decode(&resp); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "sheets", "parse", "decode payload", err)
	}
	if strings.EqualFold(resp.Status, "error") {
		return nil, services.Wrap(services.ErrMalformed, "sheets", "parse", "query error: "+describeErrors(resp.Errors), nil)
	}
	if resp.Table == nil {
		return nil, services.Wrap(services.ErrMalformed, "sheets", "parse", "payload has no table", nil)
	}

	out := make(catalog.Catalog, 0, len(resp.Table.Rows))
	for i, row := range resp.Table.Rows {
		if i == 0 || row == nil {
			continue
		}
		movie := catalog.Movie{
			Title:       cellText(row.Cells, colTitle),
			Year:        cellText(row.Cells, colYear),
			Rating:      cellText(row.Cells, colRating),
			Genre:       cellText(row.Cells, colGenre),
			Description: cellText(row.Cells, colDescription),
			PosterURL:   cellText(row.Cells, colPoster),
			StreamURL:   cellText(row.Cells, colStream),
			DownloadURL: cellText(row.Cells, colDownload),
		}.Normalized()
		if movie.Title == "" {
			continue
		}
		movie.ID = len(out) + 1
		out = append(out, movie)
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrEmptyDataset, "sheets", "parse", "no movie rows", nil)
	}
	return out, nil
}

func cellText(cells []*gvizCell, idx int) string {
	if idx >= len(cells) || cells[idx] == nil {
		return ""
	}
	cell := cells[idx]
	if cell.V == nil {
		return strings.TrimSpace(cell.F)
	}
	return renderValue(cell.V)
}

func renderValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return renderNumber(value)
	case bool:
		return strconv.FormatBool(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(encoded))
	}
}

func renderNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return n.String()
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func describeErrors(errs []gvizError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.TrimSpace(e.DetailedMessage)
		if msg == "" {
			msg = strings.TrimSpace(e.Message)
		}
		if msg == "" {
			msg = strings.TrimSpace(e.Reason)
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		return "unspecified"
	}
	return strings.Join(parts, "; ")
}

// htmlTitle returns the <title> of an HTML body, typically a sign-in or
// "file not found" page served instead of the sheet.
func htmlTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] != '<' {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(trimmed)))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
