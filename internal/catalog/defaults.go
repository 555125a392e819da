package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed defaults.json
var bundledJSON []byte

// Bundled returns the built-in default catalog. It never returns an empty
// catalog; a broken embedded file is a build defect and panics.
func Bundled() Catalog {
	c, err := Decode(bundledJSON)
	if err != nil || len(c) == 0 {
		panic(fmt.Sprintf("catalog: embedded defaults invalid: %v", err))
	}
	return c
}

// LoadBundled returns the catalog stored at path, or the embedded defaults
// when path is blank. An override file that is unreadable or empty is an error.
func LoadBundled(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Bundled(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundled catalog: %w", err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode bundled catalog %s: %w", path, err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("bundled catalog %s has no movies", path)
	}
	return c, nil
}

// Decode parses a JSON array of movies and normalizes every entry. Entries
// without a title are dropped.
func Decode(data []byte) (Catalog, error) {
	var raw []Movie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(Catalog, 0, len(raw))
	for _, m := range raw {
		m = m.Normalized()
		if m.Title == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Encode serializes the catalog as the persisted JSON array.
func Encode(c Catalog) ([]byte, error) {
	if c == nil {
		c = Catalog{}
	}
	return json.MarshalIndent(c, "", "  ")
}
