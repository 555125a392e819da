package catalog

import (
	"strings"
	"sync"
)

// Snapshot is the published state of a Store after a change.
type Snapshot struct {
	Version    uint64
	Catalog    Catalog
	Criteria   Criteria
	View       Catalog
	Tier       Tier
	Diagnostic string
}

// Store holds the authoritative catalog and the current filter criteria, and
// keeps the derived view in step with both. Every accessor returns a copy.
//
// Each change recomputes the view synchronously before the mutating call
// returns, then publishes the new Snapshot to subscribers outside the lock.
type Store struct {
	mu         sync.Mutex
	catalog    Catalog
	criteria   Criteria
	view       Catalog
	tier       Tier
	diagnostic string
	version    uint64

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	order   []uint64
	nextSub uint64
}

// NewStore returns an empty store with the given initial criteria.
func NewStore(criteria Criteria) *Store {
	s := &Store{
		catalog:  Catalog{},
		criteria: normalizeCriteria(criteria),
		view:     Catalog{},
		subs:     make(map[uint64]func(Snapshot)),
	}
	return s
}

// ReplaceCatalog installs the result of a resolution cycle.
func (s *Store) ReplaceCatalog(c Catalog, tier Tier, diagnostic string) {
	s.mu.Lock()
	s.catalog = c.Clone()
	if s.catalog == nil {
		s.catalog = Catalog{}
	}
	s.tier = tier
	s.diagnostic = strings.TrimSpace(diagnostic)
	snap := s.recomputeLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// SetFilter changes the genre filter; blank resets to "all".
func (s *Store) SetFilter(genre string) {
	s.mu.Lock()
	s.criteria.Genre = normalizeGenre(genre)
	snap := s.recomputeLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// SetSearch changes the free-text search term.
func (s *Store) SetSearch(term string) {
	s.mu.Lock()
	s.criteria.Search = strings.TrimSpace(term)
	snap := s.recomputeLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Apply runs fn against the current catalog and installs its result. fn runs
// under the store lock so concurrent mutations see each other's results; it
// must not call back into the store. When fn returns an error the store is
// left untouched.
func (s *Store) Apply(fn func(Catalog) (Catalog, error)) error {
	s.mu.Lock()
	next, err := fn(s.catalog.Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next == nil {
		next = Catalog{}
	}
	s.catalog = next
	snap := s.recomputeLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// DerivedView returns the filtered catalog.
func (s *Store) DerivedView() Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// Catalog returns the full authoritative catalog.
func (s *Store) Catalog() Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Clone()
}

// Criteria returns the current filter criteria.
func (s *Store) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Snapshot returns a copy of the full current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every published snapshot. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			for i, existing := range s.order {
				if existing == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) recomputeLocked() Snapshot {
	s.view = Apply(s.catalog, s.criteria)
	s.version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:    s.version,
		Catalog:    s.catalog.Clone(),
		Criteria:   s.criteria,
		View:       s.view.Clone(),
		Tier:       s.tier,
		Diagnostic: s.diagnostic,
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func normalizeCriteria(c Criteria) Criteria {
	return Criteria{Genre: normalizeGenre(c.Genre), Search: strings.TrimSpace(c.Search)}
}

func normalizeGenre(genre string) string {
	genre = strings.TrimSpace(genre)
	if genre == "" || strings.EqualFold(genre, GenreAll) {
		return GenreAll
	}
	return genre
}
