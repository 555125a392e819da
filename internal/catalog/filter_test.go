package catalog_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"moviestream/internal/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleCatalog() catalog.Catalog {
	return catalog.Catalog{
		{ID: 1, Title: "Inception", Genre: "Sci-Fi, Action", Description: "Dream heist."},
		{ID: 2, Title: "The Dark Knight", Genre: "Action, Crime, Drama", Description: "Gotham under siege."},
		{ID: 3, Title: "Pulp Fiction", Genre: "Crime, Drama", Description: "Hitmen and a dark briefcase."},
		{ID: 4, Title: "Amélie", Genre: "Romance, Comedy", Description: "Paris."},
	}
}

func titles(c catalog.Catalog) []string {
	out := make([]string, 0, len(c))
	for _, m := range c {
		out = append(out, m.Title)
	}
	return out
}

func TestApplyIdentity(t *testing.T) {
	c := sampleCatalog()
	for _, criteria := range []catalog.Criteria{
		{Genre: "all"},
		{Genre: "ALL"},
		{Genre: ""},
		{Genre: "  ", Search: "   "},
	} {
		got := catalog.Apply(c, criteria)
		if diff := cmp.Diff(c, got); diff != "" {
			t.Fatalf("criteria %+v changed catalog (-want +got):\n%s", criteria, diff)
		}
	}
}

func TestApplyComposesGenreAndSearch(t *testing.T) {
	c := sampleCatalog()
	tests := []struct {
		name     string
		criteria catalog.Criteria
		want     []string
	}{
		{"genre only", catalog.Criteria{Genre: "action"}, []string{"Inception", "The Dark Knight"}},
		{"search only", catalog.Criteria{Genre: "all", Search: "dark"}, []string{"The Dark Knight", "Pulp Fiction"}},
		{"genre and search", catalog.Criteria{Genre: "action", Search: "dark"}, []string{"The Dark Knight"}},
		{"search matches genre", catalog.Criteria{Search: "crime"}, []string{"The Dark Knight", "Pulp Fiction"}},
		{"case insensitive", catalog.Criteria{Genre: "SCI-FI", Search: "DREAM"}, []string{"Inception"}},
		{"unicode lowercase", catalog.Criteria{Search: "AMÉLIE"}, []string{"Amélie"}},
		{"no match", catalog.Criteria{Genre: "horror"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := titles(catalog.Apply(c, tc.criteria))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected titles (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyDoesNotFoldSharpS(t *testing.T) {
	c := catalog.Catalog{{ID: 1, Title: "Straße", Genre: "Drama"}}
	for _, search := range []string{"ss", "STRASSE"} {
		got := catalog.Apply(c, catalog.Criteria{Genre: "all", Search: search})
		if len(got) != 0 {
			t.Fatalf("search %q matched %v", search, titles(got))
		}
	}
	if got := catalog.Apply(c, catalog.Criteria{Search: "STRAßE"}); len(got) != 1 {
		t.Fatalf("search STRAßE matched %v, want Straße", titles(got))
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	c := sampleCatalog()
	before := c.Clone()
	view := catalog.Apply(c, catalog.Criteria{Genre: "drama"})
	if len(view) == 0 {
		t.Fatal("expected drama matches")
	}
	view[0].Title = "changed"
	if diff := cmp.Diff(before, c); diff != "" {
		t.Fatalf("input catalog mutated (-want +got):\n%s", diff)
	}
}

func TestGenres(t *testing.T) {
	c := sampleCatalog()
	c = append(c, catalog.Movie{ID: 5, Title: "Extra", Genre: "action,  DRAMA ,"})
	want := []string{"Action", "Comedy", "Crime", "Drama", "Romance", "Sci-Fi"}
	if diff := cmp.Diff(want, catalog.Genres(c)); diff != "" {
		t.Fatalf("unexpected genres (-want +got):\n%s", diff)
	}
}

func TestMenu(t *testing.T) {
	tests := []struct {
		name string
		c    catalog.Catalog
		want []string
	}{
		{"empty catalog", catalog.Catalog{}, catalog.StandardGenres},
		{"no genres", catalog.Catalog{{ID: 1, Title: "Untitled", Genre: " , "}}, catalog.StandardGenres},
		{"bundled", catalog.Bundled(), []string{"All", "Action", "Crime", "Drama", "Sci-Fi"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, catalog.Menu(tc.c)); diff != "" {
				t.Fatalf("unexpected menu (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMenuReturnsCopyOfStandardGenres(t *testing.T) {
	menu := catalog.Menu(nil)
	menu[0] = "changed"
	if catalog.StandardGenres[0] != "All" {
		t.Fatalf("StandardGenres mutated: %v", catalog.StandardGenres)
	}
}

func TestCatalogNextID(t *testing.T) {
	if got := (catalog.Catalog{}).NextID(); got != 1 {
		t.Fatalf("empty catalog NextID = %d, want 1", got)
	}
	if got := sampleCatalog().NextID(); got != 5 {
		t.Fatalf("NextID = %d, want 5", got)
	}
}

func TestBundledDefaults(t *testing.T) {
	c := catalog.Bundled()
	want := []string{"Inception", "The Dark Knight", "Pulp Fiction"}
	if diff := cmp.Diff(want, titles(c)); diff != "" {
		t.Fatalf("unexpected bundled titles (-want +got):\n%s", diff)
	}
	for _, m := range c {
		if m.StreamURL == "" || m.PosterURL == "" {
			t.Fatalf("bundled movie %q missing defaults: %+v", m.Title, m)
		}
	}
}

func TestMovieNormalized(t *testing.T) {
	m := catalog.Movie{Title: "  Heat ", Genre: " Crime"}.Normalized()
	want := catalog.Movie{
		Title:       "Heat",
		Genre:       "Crime",
		PosterURL:   catalog.DefaultPosterURL,
		StreamURL:   "#",
		DownloadURL: "#",
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("unexpected normalized movie (-want +got):\n%s", diff)
	}
}
