// Package coordinator composes the search machine, the connectivity monitor
// and the collection repository into the observable views consumers render,
// and implements the policy layer (debounce, empty-query filtering) on top of
// those mechanisms.
package coordinator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/catalog"
	"github.com/gauravkale/ComicsLibrary/internal/collection"
	"github.com/gauravkale/ComicsLibrary/internal/connectivity"
	"github.com/gauravkale/ComicsLibrary/internal/models"
	"github.com/gauravkale/ComicsLibrary/internal/observe"
	"github.com/gauravkale/ComicsLibrary/internal/query"
	"github.com/gauravkale/ComicsLibrary/internal/store"
)

// DefaultDebounce is used when the configured interval is not positive.
const DefaultDebounce = 300 * time.Millisecond

// CharacterView is the detail-view resolution result: the character data
// plus, when it is part of the collection, its persisted row.
type CharacterView struct {
	Remote    models.RemoteCharacter     `json:"remote"`
	Collected *models.CollectedCharacter `json:"collected,omitempty"`
}

// Coordinator owns the debounce loop and the two result machines. The
// repository and monitor are constructed by the process composition and
// only composed here.
type Coordinator struct {
	catalog catalog.Searcher
	repo    *collection.Repository
	monitor *connectivity.Monitor

	search  *query.Machine[[]models.RemoteCharacter]
	current *query.Machine[CharacterView]

	queryText  *observe.Value[string]
	debounceNS atomic.Int64

	textCh  chan string
	cancel  context.CancelFunc
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates and starts a coordinator. debounce must be positive; zero or
// negative falls back to DefaultDebounce.
func New(cat catalog.Searcher, repo *collection.Repository, monitor *connectivity.Monitor, debounce time.Duration) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	c := &Coordinator{
		catalog:   cat,
		repo:      repo,
		monitor:   monitor,
		queryText: observe.NewValue(""),
		textCh:    make(chan string),
		stopped:   make(chan struct{}),
	}
	c.debounceNS.Store(int64(debounce))

	c.search = query.NewMachine(c.fetchPage)
	c.current = query.NewMachine(c.resolveCharacter)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)
	return c
}

// run is the debounce loop: each text update re-arms a single-shot timer and
// a submission happens only when the timer fires uninterrupted.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.stopped)

	var timer *time.Timer
	var timerCh <-chan time.Time
	var pending string

	arm := func() {
		d := time.Duration(c.debounceNS.Load())
		if timer == nil {
			timer = time.NewTimer(d)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timerCh:
			default:
			}
		}
		timer.Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case q := <-c.textCh:
			pending = q
			arm()

		case <-timerCh:
			// Policy, not mechanism: the machine would happily search
			// an empty string; the coordinator chooses not to.
			if strings.TrimSpace(pending) == "" {
				c.search.Reset()
			} else {
				c.search.Submit(pending)
			}
		}
	}
}

// fetchPage adapts the catalog search to the machine's fetch contract.
func (c *Coordinator) fetchPage(ctx context.Context, q string) ([]models.RemoteCharacter, string, error) {
	res, err := c.catalog.SearchCharacters(ctx, q)
	if err != nil {
		return nil, "", err
	}
	return res.Items, res.Attribution, nil
}

// resolveCharacter resolves a numeric id to a character view: the persisted
// store is consulted first (by local id, then by catalog id), and only a miss
// triggers a remote single-item fetch. The remotely fetched character stays
// ephemeral; it is not collected as a side effect.
func (c *Coordinator) resolveCharacter(ctx context.Context, idText string) (CharacterView, string, error) {
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return CharacterView{}, "", errors.New("character id must be numeric")
	}

	local, err := c.repo.Get(id)
	if errors.Is(err, apperr.ErrNotFound) {
		local, err = c.repo.GetByExternalID(int(id))
	}
	if err == nil {
		return CharacterView{
			Remote: models.RemoteCharacter{
				ExternalID:   local.ExternalID,
				Name:         local.Name,
				ThumbnailURL: local.ThumbnailURL,
				Description:  local.Description,
			},
			Collected: local,
		}, "", nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return CharacterView{}, "", err
	}

	rc, err := c.catalog.FetchCharacter(ctx, int(id))
	if err != nil {
		return CharacterView{}, "", err
	}
	return CharacterView{Remote: *rc}, "", nil
}

// SetQueryText updates the observable query text and re-arms the debounce.
func (c *Coordinator) SetQueryText(q string) {
	if c.closed.Load() {
		return
	}
	c.queryText.Set(q)
	select {
	case c.textCh <- q:
	case <-c.stopped:
	}
}

// SetDebounce updates the debounce interval for subsequent text updates.
func (c *Coordinator) SetDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultDebounce
	}
	c.debounceNS.Store(int64(d))
}

// SetCurrentCharacter starts resolution of the detail view for id,
// superseding any resolution still in flight.
func (c *Coordinator) SetCurrentCharacter(id int64) {
	c.current.Submit(strconv.FormatInt(id, 10))
}

// Resolve resolves a character view on the caller's goroutine. It runs the
// same local-then-remote lookup as SetCurrentCharacter but does not go
// through the shared detail machine, so concurrent resolutions do not
// supersede each other.
func (c *Coordinator) Resolve(ctx context.Context, id int64) (CharacterView, error) {
	view, _, err := c.resolveCharacter(ctx, strconv.FormatInt(id, 10))
	return view, err
}

// Collect persists a remote character into the collection (idempotent).
func (c *Coordinator) Collect(rc models.RemoteCharacter) (models.CollectedCharacter, error) {
	return c.repo.Add(rc)
}

// Uncollect removes a collected character and its notes.
func (c *Coordinator) Uncollect(localID int64) error {
	return c.repo.Remove(localID)
}

// AddNote attaches a note to a collected character.
func (c *Coordinator) AddNote(n models.Note) (models.Note, error) {
	return c.repo.AddNote(n)
}

// RemoveNote deletes a note.
func (c *Coordinator) RemoveNote(localID int64) error {
	return c.repo.RemoveNote(localID)
}

// NotesFor returns a snapshot of one character's notes.
func (c *Coordinator) NotesFor(characterID int64) ([]models.Note, error) {
	return c.repo.NotesFor(characterID)
}

// SearchNotes runs a full-text search over the note archive.
func (c *Coordinator) SearchNotes(query string, limit int) ([]store.NoteMatch, error) {
	return c.repo.SearchNotes(query, limit)
}

// QueryText is the observable current query text.
func (c *Coordinator) QueryText() *observe.Value[string] {
	return c.queryText
}

// Results is the observable outcome of the latest search submission.
func (c *Coordinator) Results() *observe.Value[query.Result[[]models.RemoteCharacter]] {
	return c.search.State()
}

// Current is the observable outcome of the latest detail-view resolution.
func (c *Coordinator) Current() *observe.Value[query.Result[CharacterView]] {
	return c.current.State()
}

// Connectivity is the observable network status.
func (c *Coordinator) Connectivity() *observe.Value[connectivity.Status] {
	return c.monitor.Status()
}

// Collection is the live collection view.
func (c *Coordinator) Collection() *observe.Value[[]models.CollectedCharacter] {
	return c.repo.Collection()
}

// Notes is the live notes view.
func (c *Coordinator) Notes() *observe.Value[[]models.Note] {
	return c.repo.Notes()
}

// Close stops the debounce loop and both machines, cancelling any in-flight
// fetches. The repository and monitor stay open; their owner closes them.
func (c *Coordinator) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	<-c.stopped
	c.search.Close()
	c.current.Close()
	c.queryText.Close()
}
