package store

import "github.com/gauravkale/ComicsLibrary/internal/models"

// Store defines the interface for persisted collection operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	InsertCharacter(c models.CollectedCharacter) (models.CollectedCharacter, error)
	DeleteCharacter(localID int64) error
	GetCharacter(localID int64) (*models.CollectedCharacter, error)
	GetCharacterByAPIID(apiID int) (*models.CollectedCharacter, error)
	ListCharacters() ([]models.CollectedCharacter, error)
	InsertNote(n models.Note) (models.Note, error)
	DeleteNote(localID int64) error
	ListNotes() ([]models.Note, error)
	NotesForCharacter(localID int64) ([]models.Note, error)
	SearchNotes(query string, limit int) ([]NoteMatch, error)
	PurgeOrphanNotes() (int64, error)
	Close() error
}

// NoteMatch is one full-text search hit. Snippet is a short excerpt of the
// note text around the match.
type NoteMatch struct {
	Note    models.Note `json:"note"`
	Snippet string      `json:"snippet"`
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
