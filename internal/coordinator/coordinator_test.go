package coordinator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gauravkale/ComicsLibrary/internal/catalog"
	"github.com/gauravkale/ComicsLibrary/internal/connectivity"
	"github.com/gauravkale/ComicsLibrary/internal/models"
	"github.com/gauravkale/ComicsLibrary/internal/query"
	"github.com/gauravkale/ComicsLibrary/internal/testutil"
)

type fakeCatalog struct {
	mu       sync.Mutex
	searches []string
	items    []models.RemoteCharacter
	fetched  map[int]models.RemoteCharacter
}

func (f *fakeCatalog) SearchCharacters(_ context.Context, q string) (*catalog.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	return &catalog.SearchResult{Items: f.items, Attribution: "test data"}, nil
}

func (f *fakeCatalog) FetchCharacter(_ context.Context, id int) (*models.RemoteCharacter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.fetched[id]
	if !ok {
		return nil, fmt.Errorf("catalog: character %d: not found", id)
	}
	return &rc, nil
}

func (f *fakeCatalog) searchCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func remotePair() []models.RemoteCharacter {
	return []models.RemoteCharacter{
		{ExternalID: 1009610, Name: "Spider-Man", Comics: []string{"ASM #1"}},
		{ExternalID: 1009697, Name: "Spider-Woman"},
	}
}

func testCoordinator(t *testing.T, cat catalog.Searcher, debounce time.Duration) *Coordinator {
	t.Helper()
	repo := testutil.TestRepository(t)

	monitor := connectivity.NewMonitor(nil, time.Second)
	t.Cleanup(monitor.Close)

	c := New(cat, repo, monitor, debounce)
	t.Cleanup(c.Close)
	return c
}

func waitForResultKind[T any](t *testing.T, get func() query.Result[T], k query.Kind) query.Result[T] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		cur := get()
		if cur.Kind == k {
			return cur
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %v, have %v", k, cur.Kind)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDebounceCollapsesBursts(t *testing.T) {
	cat := &fakeCatalog{items: remotePair()}
	c := testCoordinator(t, cat, 40*time.Millisecond)

	c.SetQueryText("S")
	c.SetQueryText("Sp")
	c.SetQueryText("Spider")

	waitForResultKind(t, c.Results().Get, query.Success)

	calls := cat.searchCalls()
	if len(calls) != 1 || calls[0] != "Spider" {
		t.Fatalf("search calls = %v, want exactly [Spider]", calls)
	}
	if got := c.QueryText().Get(); got != "Spider" {
		t.Errorf("query text = %q", got)
	}
}

func TestEmptyQueryResetsToInitial(t *testing.T) {
	cat := &fakeCatalog{items: remotePair()}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	c.SetQueryText("Spider")
	waitForResultKind(t, c.Results().Get, query.Success)

	c.SetQueryText("   ")
	waitForResultKind(t, c.Results().Get, query.Initial)

	if calls := cat.searchCalls(); len(calls) != 1 {
		t.Fatalf("blank query must not hit the catalog, calls = %v", calls)
	}
}

func TestCurrentCharacter_LocalHit(t *testing.T) {
	cat := &fakeCatalog{fetched: map[int]models.RemoteCharacter{}}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	saved, err := c.Collect(remotePair()[0])
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	c.SetCurrentCharacter(saved.LocalID)
	got := waitForResultKind(t, c.Current().Get, query.Success)
	if got.Payload.Collected == nil {
		t.Fatal("expected persisted row in view")
	}
	if got.Payload.Collected.LocalID != saved.LocalID {
		t.Errorf("resolved id = %d, want %d", got.Payload.Collected.LocalID, saved.LocalID)
	}
}

func TestCurrentCharacter_RemoteFallbackStaysEphemeral(t *testing.T) {
	cat := &fakeCatalog{fetched: map[int]models.RemoteCharacter{
		1009220: {ExternalID: 1009220, Name: "Captain America"},
	}}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	c.SetCurrentCharacter(1009220)
	got := waitForResultKind(t, c.Current().Get, query.Success)
	if got.Payload.Collected != nil {
		t.Error("remote fallback must not report a persisted row")
	}
	if got.Payload.Remote.Name != "Captain America" {
		t.Errorf("remote name = %q", got.Payload.Remote.Name)
	}
	if len(c.Collection().Get()) != 0 {
		t.Error("remote fallback must not persist the character")
	}
}

func TestCurrentCharacter_FetchFailure(t *testing.T) {
	cat := &fakeCatalog{fetched: map[int]models.RemoteCharacter{}}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	c.SetCurrentCharacter(424242)
	got := waitForResultKind(t, c.Current().Get, query.Error)
	if got.Message == "" {
		t.Error("expected a failure message")
	}
}

func TestResolve_DoesNotTouchSharedDetailState(t *testing.T) {
	cat := &fakeCatalog{fetched: map[int]models.RemoteCharacter{
		1009220: {ExternalID: 1009220, Name: "Captain America"},
	}}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	view, err := c.Resolve(context.Background(), 1009220)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if view.Remote.Name != "Captain America" {
		t.Errorf("remote name = %q", view.Remote.Name)
	}
	if got := c.Current().Get(); got.Kind != query.Initial {
		t.Errorf("shared detail state = %v, want untouched Initial", got.Kind)
	}

	if _, err := c.Resolve(context.Background(), 424242); err == nil {
		t.Error("expected an error for an unknown id")
	}
}

func TestConnectivityViewDefaultsAvailable(t *testing.T) {
	cat := &fakeCatalog{}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	if got := c.Connectivity().Get(); got != connectivity.Available {
		t.Fatalf("connectivity = %v, want Available", got)
	}
}

func TestEndToEndCollectAndCascade(t *testing.T) {
	cat := &fakeCatalog{items: remotePair()}
	c := testCoordinator(t, cat, 20*time.Millisecond)

	c.SetQueryText("Spider")
	res := waitForResultKind(t, c.Results().Get, query.Success)
	if len(res.Payload) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Payload))
	}
	if res.Attribution != "test data" {
		t.Errorf("attribution = %q", res.Attribution)
	}

	saved, err := c.Collect(res.Payload[0])
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := c.Collection().Get(); len(got) != 1 {
		t.Fatalf("collection length = %d, want 1", len(got))
	}

	note, err := c.AddNote(models.Note{OwnerCharacterID: saved.LocalID, Title: "x", Text: "y"})
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if note.LocalID == 0 {
		t.Error("expected assigned note id")
	}

	if err := c.Uncollect(saved.LocalID); err != nil {
		t.Fatalf("Uncollect: %v", err)
	}
	if got := c.Notes().Get(); len(got) != 0 {
		t.Fatalf("notes after cascade = %d, want 0", len(got))
	}
	if got := c.Collection().Get(); len(got) != 0 {
		t.Fatalf("collection after uncollect = %d, want 0", len(got))
	}
}
