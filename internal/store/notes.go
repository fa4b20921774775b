package store

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/models"
)

// InsertNote inserts a note and returns it with the assigned id. The foreign
// key on character_id makes the owner-existence check part of the insert
// itself, so a note can never be created for a character that a concurrent
// delete just removed.
func (db *DB) InsertNote(n models.Note) (models.Note, error) {
	res, err := db.conn.Exec(`
		INSERT INTO notes (character_id, title, text)
		VALUES (?, ?, ?)
	`, n.OwnerCharacterID, n.Title, n.Text)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Note{}, fmt.Errorf("store: note owner %d: %w", n.OwnerCharacterID, apperr.ErrIntegrity)
		}
		return models.Note{}, fmt.Errorf("store: insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("store: insert note: %w", err)
	}
	n.LocalID = id
	return n, nil
}

// DeleteNote removes a note by id. Deleting an absent note is a no-op.
func (db *DB) DeleteNote(localID int64) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, localID); err != nil {
		return fmt.Errorf("store: delete note %d: %w", localID, err)
	}
	return nil
}

// ListNotes returns all notes across all characters in insertion order.
func (db *DB) ListNotes() ([]models.Note, error) {
	return db.queryNotes(`SELECT id, character_id, title, text FROM notes ORDER BY id`)
}

// NotesForCharacter returns the notes owned by one character in insertion order.
func (db *DB) NotesForCharacter(localID int64) ([]models.Note, error) {
	return db.queryNotes(`SELECT id, character_id, title, text FROM notes WHERE character_id = ? ORDER BY id`, localID)
}

// PurgeOrphanNotes deletes notes whose owner row no longer exists and returns
// how many were removed. The delete cascade already runs in one transaction;
// this is the repair pass for databases written by older versions or
// interrupted out-of-process.
func (db *DB) PurgeOrphanNotes() (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM notes WHERE character_id NOT IN (SELECT id FROM characters)
	`)
	if err != nil {
		return 0, fmt.Errorf("store: purge orphan notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge orphan notes: %w", err)
	}
	return n, nil
}

func (db *DB) queryNotes(q string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.LocalID, &n.OwnerCharacterID, &n.Title, &n.Text); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
