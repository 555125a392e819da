package catalog

import (
	"strings"
)

const (
	// DefaultPosterURL is shown when a movie has no poster.
	DefaultPosterURL = "https://via.placeholder.com/300x450?text=No+Poster"
	// PlaceholderLink stands in for a missing stream or download link.
	PlaceholderLink = "#"
	// GenreAll disables the genre predicate.
	GenreAll = "all"
)

// Movie is a single catalog record.
type Movie struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Year        string `json:"year"`
	Rating      string `json:"rating"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	PosterURL   string `json:"posterUrl"`
	StreamURL   string `json:"streamUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// Normalized trims every field and fills the poster and link placeholders.
func (m Movie) Normalized() Movie {
	m.Title = strings.TrimSpace(m.Title)
	m.Year = strings.TrimSpace(m.Year)
	m.Rating = strings.TrimSpace(m.Rating)
	m.Genre = strings.TrimSpace(m.Genre)
	m.Description = strings.TrimSpace(m.Description)
	m.PosterURL = orDefault(m.PosterURL, DefaultPosterURL)
	m.StreamURL = orDefault(m.StreamURL, PlaceholderLink)
	m.DownloadURL = orDefault(m.DownloadURL, PlaceholderLink)
	return m
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// Catalog is an ordered list of movies. Remote loads keep source order; local
// creates are prepended.
type Catalog []Movie

// Clone returns an independent copy; nil stays nil.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}

// MaxID returns the largest id in the catalog, or 0 when empty.
func (c Catalog) MaxID() int {
	max := 0
	for _, m := range c {
		if m.ID > max {
			max = m.ID
		}
	}
	return max
}

// NextID is the identifier assigned to the next local create.
func (c Catalog) NextID() int {
	return c.MaxID() + 1
}

// Index returns the position of the movie with id, or -1.
func (c Catalog) Index(id int) int {
	for i, m := range c {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the movie with id.
func (c Catalog) Find(id int) (Movie, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Movie{}, false
}

// Tier identifies which source a catalog was resolved from.
type Tier string

const (
	TierNone    Tier = ""
	TierRemote  Tier = "remote"
	TierLocal   Tier = "local"
	TierBundled Tier = "bundled"
)

func (t Tier) String() string {
	if t == TierNone {
		return "none"
	}
	return string(t)
}

// Criteria holds the genre filter and free-text search.
type Criteria struct {
	Genre  string `json:"genre"`
	Search string `json:"searchTerm"`
}

// DefaultCriteria matches every movie.
func DefaultCriteria() Criteria {
	return Criteria{Genre: GenreAll}
}
