package engine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"moviestream/internal/catalog"
	"moviestream/internal/config"
	"moviestream/internal/engine"
	"moviestream/internal/localcache"
	"moviestream/internal/services"
	"moviestream/internal/testsupport"
)

type writeRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (w *writeRecorder) add(body map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies = append(w.bodies, body)
}

func (w *writeRecorder) all() []map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]map[string]any(nil), w.bodies...)
}

func writeServer(t *testing.T, status int, reply string) (*httptest.Server, *writeRecorder) {
	t.Helper()
	rec := &writeRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(decodeBody(t, r))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func loadedEngine(t *testing.T, opts []testsupport.ConfigOption, engineOpts ...engine.Option) (*engine.Engine, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	eng := newEngine(t, cfg, engineOpts...)
	eng.Load(context.Background())
	return eng, cfg
}

func TestCreateAssignsNextIDAndPrepends(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true,"message":"ok"}`)
	eng, _ := loadedEngine(t, []testsupport.ConfigOption{testsupport.WithWriteURL(server.URL)})
	before := eng.Catalog()

	res, err := eng.Create(context.Background(), catalog.Movie{Title: " Heat ", Genre: "Crime", Year: "1995"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Movie.ID != before.MaxID()+1 {
		t.Fatalf("expected id %d, got %d", before.MaxID()+1, res.Movie.ID)
	}
	if res.Remote != engine.RemoteConfirmed || res.Degraded {
		t.Fatalf("unexpected remote outcome %+v", res)
	}
	if res.Movie.Title != "Heat" || res.Movie.PosterURL != catalog.DefaultPosterURL || res.Movie.StreamURL != "#" {
		t.Fatalf("expected normalized movie, got %+v", res.Movie)
	}

	after := eng.Catalog()
	if len(after) != len(before)+1 || after[0].ID != res.Movie.ID {
		t.Fatalf("expected movie prepended, got %+v", after)
	}
	if diff := cmp.Diff(before, after[1:]); diff != "" {
		t.Fatalf("existing movies changed (-want +got):\n%s", diff)
	}

	bodies := rec.all()
	if len(bodies) != 1 || bodies[0]["action"] != "create" || bodies[0]["title"] != "Heat" {
		t.Fatalf("unexpected write bodies %+v", bodies)
	}
	if _, ok := bodies[0]["id"]; ok {
		t.Fatal("create must not send an id")
	}
}

func TestCreatePersistsSynchronously(t *testing.T) {
	eng, cfg := loadedEngine(t, nil)
	res, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Remote != engine.RemoteSkipped {
		t.Fatalf("expected skipped remote without write url, got %s", res.Remote)
	}
	entry, found, err := openCache(t, cfg).Load(context.Background())
	if err != nil || !found {
		t.Fatalf("load cache: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(eng.Catalog(), entry.Movies); diff != "" {
		t.Fatalf("cache does not match store (-want +got):\n%s", diff)
	}
}

func TestCreateOnEmptyCatalogStartsAtOne(t *testing.T) {
	eng := newEngine(t, testsupport.NewConfig(t))
	res, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Movie.ID != 1 || len(eng.Catalog()) != 1 {
		t.Fatalf("expected id 1 in a one-movie catalog, got %+v", eng.Catalog())
	}
}

func TestCreateRemoteFailureIsDegradedSuccess(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
	}{
		{"rejected", http.StatusOK, `{"success":false,"message":"Sheet locked"}`},
		{"server error", http.StatusInternalServerError, `oops`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := writeServer(t, tc.status, tc.reply)
			notifier := &recordingNotifier{}
			eng, _ := loadedEngine(t, []testsupport.ConfigOption{testsupport.WithWriteURL(server.URL)}, engine.WithNotifier(notifier))
			before := len(eng.Catalog())

			res, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if res.Remote != engine.RemoteFailed || !res.Degraded || res.Message == "" {
				t.Fatalf("expected degraded success, got %+v", res)
			}
			if len(eng.Catalog()) != before+1 {
				t.Fatal("expected local commit despite remote failure")
			}
			if diff := cmp.Diff([]string{"create"}, notifier.writes); diff != "" {
				t.Fatalf("unexpected write notifications (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateOpaqueWritesAreUnknown(t *testing.T) {
	server, _ := writeServer(t, http.StatusFound, ``)
	eng, _ := loadedEngine(t, []testsupport.ConfigOption{
		testsupport.WithWriteURL(server.URL),
		testsupport.WithConfig(func(c *config.Config) { c.Remote.OpaqueWrites = true }),
	})
	res, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Remote != engine.RemoteUnknown || res.Degraded {
		t.Fatalf("expected unknown non-degraded outcome, got %+v", res)
	}
}

func TestCreateValidation(t *testing.T) {
	eng, _ := loadedEngine(t, nil)
	before := eng.Catalog()
	for _, movie := range []catalog.Movie{
		{Genre: "Crime"},
		{Title: "Heat"},
		{Title: "  ", Genre: "  "},
	} {
		if _, err := eng.Create(context.Background(), movie); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", movie, err)
		}
	}
	if diff := cmp.Diff(before, eng.Catalog()); diff != "" {
		t.Fatalf("catalog changed after rejected creates (-want +got):\n%s", diff)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true}`)
	eng, _ := loadedEngine(t, []testsupport.ConfigOption{testsupport.WithWriteURL(server.URL)})

	res, err := eng.Update(context.Background(), 2, catalog.Movie{ID: 99, Title: "The Dark Knight Rises", Genre: "Action"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Movie.ID != 2 || res.Remote != engine.RemoteConfirmed {
		t.Fatalf("unexpected result %+v", res)
	}
	c := eng.Catalog()
	if c[1].ID != 2 || c[1].Title != "The Dark Knight Rises" {
		t.Fatalf("expected in-place update, got %+v", c)
	}
	bodies := rec.all()
	if len(bodies) != 1 || bodies[0]["action"] != "update" || bodies[0]["id"] != "2" {
		t.Fatalf("unexpected write bodies %+v", bodies)
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true}`)
	eng, _ := loadedEngine(t, []testsupport.ConfigOption{testsupport.WithWriteURL(server.URL)})
	before := eng.Catalog()

	_, err := eng.Update(context.Background(), 404, catalog.Movie{Title: "Ghost", Genre: "Drama"})
	if !isNotFound(err) || !engine.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if diff := cmp.Diff(before, eng.Catalog()); diff != "" {
		t.Fatalf("catalog changed (-want +got):\n%s", diff)
	}
	if len(rec.all()) != 0 {
		t.Fatal("unknown id must not reach the remote source")
	}
}

func TestMutationsBeforeLoadTouchNothing(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true}`)
	cfg := testsupport.NewConfig(t, testsupport.WithWriteURL(server.URL))
	eng := newEngine(t, cfg)

	_, err := eng.Update(context.Background(), 1, catalog.Movie{Title: "Inception", Genre: "Sci-Fi"})
	if !isNotFound(err) {
		t.Fatalf("expected not found from Update before Load, got %v", err)
	}

	res, err := eng.Delete(context.Background(), 1)
	if err != nil {
		t.Fatalf("Delete before Load: %v", err)
	}
	if res.Removed {
		t.Fatalf("expected Removed=false before Load, got %+v", res)
	}

	if got := eng.Catalog(); len(got) != 0 {
		t.Fatalf("expected empty catalog, got %+v", got)
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no remote writes, got %d", n)
	}
	if _, found, err := openCache(t, cfg).Load(context.Background()); err != nil || found {
		t.Fatalf("expected no cache entry, found=%v err=%v", found, err)
	}
}

func TestUpdateRespectsPropagateEdits(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true}`)
	eng, _ := loadedEngine(t, []testsupport.ConfigOption{
		testsupport.WithWriteURL(server.URL),
		testsupport.WithConfig(func(c *config.Config) { c.Remote.PropagateEdits = false }),
	})
	res, err := eng.Update(context.Background(), 1, catalog.Movie{Title: "Inception", Genre: "Thriller"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Remote != engine.RemoteSkipped || len(rec.all()) != 0 {
		t.Fatalf("expected skipped remote, got %s with %d writes", res.Remote, len(rec.all()))
	}
}

func TestDeleteTwiceIsNoOp(t *testing.T) {
	server, rec := writeServer(t, http.StatusOK, `{"success":true}`)
	eng, cfg := loadedEngine(t, []testsupport.ConfigOption{testsupport.WithWriteURL(server.URL)})

	first, err := eng.Delete(context.Background(), 3)
	if err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if !first.Removed || first.Movie.Title != "Pulp Fiction" {
		t.Fatalf("unexpected first delete %+v", first)
	}
	afterFirst := eng.Catalog()

	second, err := eng.Delete(context.Background(), 3)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if second.Removed {
		t.Fatal("second delete must be a no-op")
	}
	if diff := cmp.Diff(afterFirst, eng.Catalog()); diff != "" {
		t.Fatalf("catalog changed on second delete (-want +got):\n%s", diff)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("expected one remote delete, got %d", n)
	}
	entry, _, err := openCache(t, cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if diff := cmp.Diff(afterFirst, entry.Movies); diff != "" {
		t.Fatalf("cache differs from store (-want +got):\n%s", diff)
	}
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	eng, _ := loadedEngine(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.Create(context.Background(), catalog.Movie{Title: "Clone", Genre: "Sci-Fi"}); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, m := range eng.Catalog() {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
	if len(seen) != 13 {
		t.Fatalf("expected 13 movies, got %d", len(seen))
	}
}

func TestCreateVisibleInViewImmediately(t *testing.T) {
	eng, _ := loadedEngine(t, nil)
	eng.SetFilter("crime")
	if _, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	view := eng.View()
	if len(view) == 0 || view[0].Title != "Heat" {
		t.Fatalf("expected new movie first in filtered view, got %+v", view)
	}
}

type failingSaveCache struct {
	localcache.Store
}

func (failingSaveCache) Save(context.Context, catalog.Catalog) error {
	return errors.New("disk full")
}

func TestCreateKeepsCommitWhenPersistFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	cache := failingSaveCache{Store: openCache(t, cfg)}
	eng := newEngine(t, cfg, engine.WithCache(cache), engine.WithNotifier(notifier))

	res := eng.LoadLocal(context.Background())
	if res.Tier != catalog.TierBundled {
		t.Fatalf("expected bundled tier, got %s", res.Tier)
	}

	created, err := eng.Create(context.Background(), catalog.Movie{Title: "Heat", Genre: "Crime"})
	if err == nil {
		t.Fatal("expected persist error from Create")
	}
	if created.Movie.ID != res.Catalog.MaxID()+1 {
		t.Fatalf("expected result despite persist error, got %+v", created)
	}
	if got := eng.Catalog(); len(got) != len(res.Catalog)+1 || got[0].Title != "Heat" {
		t.Fatalf("expected in-memory commit kept, got %+v", got)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.caches) != 2 {
		t.Fatalf("expected cache failure notifications for the bundled save and the create, got %v", notifier.caches)
	}
}

// cacheFailureNotifier runs onCacheFailure from NotifyCacheFailed.
type cacheFailureNotifier struct {
	*recordingNotifier
	onCacheFailure func()
}

func (n *cacheFailureNotifier) NotifyCacheFailed(ctx context.Context, location string, err error) error {
	if n.onCacheFailure != nil {
		n.onCacheFailure()
	}
	return n.recordingNotifier.NotifyCacheFailed(ctx, location, err)
}

func TestCacheFailureNotifiedOutsideStoreLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &cacheFailureNotifier{recordingNotifier: &recordingNotifier{}}
	cache := failingSaveCache{Store: openCache(t, cfg)}
	eng := newEngine(t, cfg, engine.WithCache(cache), engine.WithNotifier(notifier))
	eng.LoadLocal(context.Background())

	var blocked []string
	notifier.onCacheFailure = func() {
		done := make(chan struct{})
		go func() {
			_ = eng.View()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			blocked = append(blocked, "view")
		}
	}

	ctx := context.Background()
	if _, err := eng.Create(ctx, catalog.Movie{Title: "Heat", Genre: "Crime"}); err == nil {
		t.Fatal("expected persist error from Create")
	}
	if _, err := eng.Update(ctx, 1, catalog.Movie{Title: "Inception", Genre: "Sci-Fi"}); err == nil {
		t.Fatal("expected persist error from Update")
	}
	if _, err := eng.Delete(ctx, 2); err == nil {
		t.Fatal("expected persist error from Delete")
	}
	if len(blocked) != 0 {
		t.Fatalf("store was locked during %d cache failure notifications", len(blocked))
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.caches) != 4 {
		t.Fatalf("expected four cache failure notifications, got %v", notifier.caches)
	}
}
