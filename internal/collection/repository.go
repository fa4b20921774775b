// Package collection implements the reconciliation layer between remote
// search results and the persisted character collection: deduplicated
// collect, cascading removal, note integrity, and live views of both tables.
package collection

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gauravkale/ComicsLibrary/internal/models"
	"github.com/gauravkale/ComicsLibrary/internal/observe"
	"github.com/gauravkale/ComicsLibrary/internal/store"
)

// Event kinds published after successful mutations.
const (
	EventCharacterCollected = "character.collected"
	EventCharacterRemoved   = "character.removed"
	EventNoteAdded          = "note.added"
	EventNoteRemoved        = "note.removed"
)

// EventCallback is called after each successful repository mutation.
type EventCallback func(kind string, id int64)

// Repository is the sole reader/writer of persisted characters and notes.
//
// Writes are serialized by a single mutex, and both live views are refreshed
// before a mutating call returns, so an observer on the same coordinator
// never sees a stale read after its own write.
type Repository struct {
	store    store.Store
	logger   *slog.Logger
	onChange EventCallback

	mu         sync.Mutex
	collection *observe.Value[[]models.CollectedCharacter]
	notes      *observe.Value[[]models.Note]
}

// New creates a repository over the given store. It first purges notes left
// orphaned by an interrupted out-of-process cascade, then loads both views.
// onChange may be nil.
func New(st store.Store, logger *slog.Logger, onChange EventCallback) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if purged, err := st.PurgeOrphanNotes(); err != nil {
		return nil, fmt.Errorf("collection: orphan sweep: %w", err)
	} else if purged > 0 {
		logger.Warn("purged orphan notes", slog.Int64("count", purged))
	}

	characters, err := st.ListCharacters()
	if err != nil {
		return nil, fmt.Errorf("collection: load collection: %w", err)
	}
	notes, err := st.ListNotes()
	if err != nil {
		return nil, fmt.Errorf("collection: load notes: %w", err)
	}

	return &Repository{
		store:      st,
		logger:     logger,
		onChange:   onChange,
		collection: observe.NewValue(characters),
		notes:      observe.NewValue(notes),
	}, nil
}

// Add maps a remote character to its persisted form and inserts it.
// Collecting an already-collected character is a no-op that returns the
// existing row.
func (r *Repository) Add(rc models.RemoteCharacter) (models.CollectedCharacter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.InsertCharacter(models.Collected(rc))
	if err != nil {
		return models.CollectedCharacter{}, err
	}
	r.refreshCollection()
	r.publish(EventCharacterCollected, c.LocalID)
	return c, nil
}

// Remove deletes a character and, in the same transaction, every note that
// references it.
func (r *Repository) Remove(localID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteCharacter(localID); err != nil {
		return err
	}
	r.refreshCollection()
	r.refreshNotes()
	r.publish(EventCharacterRemoved, localID)
	return nil
}

// Get returns a snapshot of one collected character.
func (r *Repository) Get(localID int64) (*models.CollectedCharacter, error) {
	return r.store.GetCharacter(localID)
}

// GetByExternalID returns the collected row for a remote catalog id, if any.
func (r *Repository) GetByExternalID(externalID int) (*models.CollectedCharacter, error) {
	return r.store.GetCharacterByAPIID(externalID)
}

// AddNote inserts a note after the store verifies its owner exists; a
// dangling owner id yields apperr.ErrIntegrity and leaves the notes
// view unchanged.
func (r *Repository) AddNote(n models.Note) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.store.InsertNote(n)
	if err != nil {
		return models.Note{}, err
	}
	r.refreshNotes()
	r.publish(EventNoteAdded, saved.LocalID)
	return saved, nil
}

// RemoveNote deletes a note by id; removing an absent note is a no-op.
func (r *Repository) RemoveNote(localID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteNote(localID); err != nil {
		return err
	}
	r.refreshNotes()
	r.publish(EventNoteRemoved, localID)
	return nil
}

// NotesFor returns a snapshot of the notes owned by one character.
func (r *Repository) NotesFor(characterID int64) ([]models.Note, error) {
	return r.store.NotesForCharacter(characterID)
}

// SearchNotes runs a full-text search over note titles and bodies.
func (r *Repository) SearchNotes(query string, limit int) ([]store.NoteMatch, error) {
	return r.store.SearchNotes(query, limit)
}

// Collection is the live view of the whole collection in insertion order.
func (r *Repository) Collection() *observe.Value[[]models.CollectedCharacter] {
	return r.collection
}

// Notes is the live view of all notes in insertion order.
func (r *Repository) Notes() *observe.Value[[]models.Note] {
	return r.notes
}

// Close closes both live views. The store itself is owned by the caller.
func (r *Repository) Close() {
	r.collection.Close()
	r.notes.Close()
}

// The refresh helpers run with the write lock held, after the write has been
// durably committed: views never show uncommitted state. A failed re-list
// keeps the previous view and is logged, since the write itself succeeded.

func (r *Repository) refreshCollection() {
	characters, err := r.store.ListCharacters()
	if err != nil {
		r.logger.Warn("collection view refresh failed", slog.String("error", err.Error()))
		return
	}
	r.collection.Set(characters)
}

func (r *Repository) refreshNotes() {
	notes, err := r.store.ListNotes()
	if err != nil {
		r.logger.Warn("notes view refresh failed", slog.String("error", err.Error()))
		return
	}
	r.notes.Set(notes)
}

func (r *Repository) publish(kind string, id int64) {
	if r.onChange != nil {
		r.onChange(kind, id)
	}
}
