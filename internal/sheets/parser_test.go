package sheets_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"moviestream/internal/catalog"
	"moviestream/internal/services"
	"moviestream/internal/sheets"
	"moviestream/internal/testsupport"
)

func TestParseSingleRow(t *testing.T) {
	raw := testsupport.Envelope(
		testsupport.HeaderRow,
		[]any{"Inception", 2010, "8.8/10", "Sci-Fi", "Dreams", "https://img/p.jpg", "https://s", "https://d"},
	)

	got, err := sheets.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, catalog.Catalog{{
		ID:          1,
		Title:       "Inception",
		Year:        "2010",
		Rating:      "8.8/10",
		Genre:       "Sci-Fi",
		Description: "Dreams",
		PosterURL:   "https://img/p.jpg",
		StreamURL:   "https://s",
		DownloadURL: "https://d",
	}}, got)
}

func TestParseAssignsSequentialIDsAndDropsUntitledRows(t *testing.T) {
	raw := testsupport.Envelope(
		testsupport.HeaderRow,
		[]any{"Alien", 1979},
		[]any{"   ", 2000, "x"},
		[]any{nil, 2001},
		[]any{"Heat", 1995.0, 8.3, "Crime"},
		[]any{},
		[]any{"Up", nil, nil, "Animation", nil, "", nil, nil},
	)

	got, err := sheets.Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		require.Equal(t, i+1, m.ID)
	}
	require.Equal(t, "Alien", got[0].Title)
	require.Equal(t, "1979", got[0].Year)
	require.Equal(t, catalog.DefaultPosterURL, got[0].PosterURL)
	require.Equal(t, "#", got[0].StreamURL)
	require.Equal(t, "#", got[0].DownloadURL)
	require.Equal(t, "1995", got[1].Year)
	require.Equal(t, "8.3", got[1].Rating)
	require.Equal(t, "Up", got[2].Title)
	require.Equal(t, "", got[2].Year)
	require.Equal(t, catalog.DefaultPosterURL, got[2].PosterURL)
}

func TestParseUsesFormattedValueWhenValueNull(t *testing.T) {
	raw := testsupport.Wrap(map[string]any{
		"status": "ok",
		"table": map[string]any{"rows": []any{
			map[string]any{"c": []any{map[string]any{"v": "Title"}}},
			map[string]any{"c": []any{
				map[string]any{"v": "Memento"},
				map[string]any{"v": nil, "f": "2000"},
				map[string]any{"v": true},
			}},
		}},
	})

	got, err := sheets.Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "2000", got[0].Year)
	require.Equal(t, "true", got[0].Rating)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		marker error
	}{
		{"empty body", "", services.ErrNotAccessible},
		{"html page", "<html><head><title>Sign in</title></head><body></body></html>", services.ErrNotAccessible},
		{"plain json", `{"table":{"rows":[]}}`, services.ErrNotAccessible},
		{"garbage payload", "/*O_o*/\ngoogle.visualization.Query.setResponse(not json);", services.ErrMalformed},
		{"no table", testsupport.Wrap(map[string]any{"status": "ok"}), services.ErrMalformed},
		{"query error", testsupport.Wrap(map[string]any{
			"status": "error",
			"errors": []any{map[string]any{"reason": "access_denied", "detailed_message": "Access denied"}},
		}), services.ErrMalformed},
		{"header only", testsupport.Envelope(testsupport.HeaderRow), services.ErrEmptyDataset},
		{"no rows", testsupport.Envelope(), services.ErrEmptyDataset},
		{"blank titles", testsupport.Envelope(testsupport.HeaderRow, []any{""}, []any{" "}), services.ErrEmptyDataset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sheets.Parse(tc.raw)
			require.Error(t, err)
			require.Nil(t, got)
			require.True(t, errors.Is(err, tc.marker), "expected %v, got %v", tc.marker, err)
		})
	}
}

func TestParseHTMLTitleInError(t *testing.T) {
	_, err := sheets.Parse("<!DOCTYPE html><html><head><title>\n  Google Drive:\n Sign-in </title></head></html>")
	require.ErrorIs(t, err, services.ErrNotAccessible)
	require.Contains(t, err.Error(), `"Google Drive: Sign-in"`)
}

func TestParseQueryErrorMessage(t *testing.T) {
	raw := testsupport.Wrap(map[string]any{
		"status": "error",
		"errors": []any{map[string]any{"reason": "invalid_query", "message": "Invalid query"}},
	})
	_, err := sheets.Parse(raw)
	require.ErrorIs(t, err, services.ErrMalformed)
	require.Contains(t, err.Error(), "Invalid query")
}
