package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StandardGenres is the fixed filter menu offered when a catalog has no genres
// of its own.
var StandardGenres = []string{"All", "Action", "Drama", "Comedy", "Sci-Fi", "Horror", "Romance"}

// Menu returns the genre filter menu for c: "All" followed by Genres(c), or
// StandardGenres when c has no genres.
func Menu(c Catalog) []string {
	genres := Genres(c)
	if len(genres) == 0 {
		return append([]string(nil), StandardGenres...)
	}
	return append([]string{"All"}, genres...)
}

// Apply returns the movies matching both the genre and the search predicate, in
// catalog order. It never mutates its input.
//
// The genre predicate is a case-insensitive substring match against the genre
// field, so "action" matches "Sci-Fi, Action". The search predicate matches
// title, genre, or description. Matching lowercases both sides; it does not
// apply full case folding, so "ss" does not match "ß".
func Apply(c Catalog, criteria Criteria) Catalog {
	folder := cases.Lower(language.Und)
	genre := strings.TrimSpace(criteria.Genre)
	matchAllGenres := genre == "" || strings.EqualFold(genre, GenreAll)
	genre = folder.String(genre)
	search := folder.String(strings.TrimSpace(criteria.Search))

	out := make(Catalog, 0, len(c))
	for _, m := range c {
		foldedGenre := folder.String(m.Genre)
		if !matchAllGenres && !strings.Contains(foldedGenre, genre) {
			continue
		}
		if search != "" &&
			!strings.Contains(folder.String(m.Title), search) &&
			!strings.Contains(foldedGenre, search) &&
			!strings.Contains(folder.String(m.Description), search) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Genres lists the distinct genres found in the catalog, title-cased and sorted.
// Multi-genre fields such as "Action, Crime" contribute each entry separately.
func Genres(c Catalog) []string {
	folder := cases.Lower(language.Und)
	titler := cases.Title(language.Und)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range c {
		for _, part := range strings.Split(m.Genre, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := folder.String(part)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, titler.String(part))
		}
	}
	sort.Strings(out)
	return out
}
