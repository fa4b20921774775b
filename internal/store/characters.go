package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/models"
)

// InsertCharacter inserts a collected character, deduplicating on api_id.
// When a row with the same api_id already exists, the existing row is returned
// unchanged: collect is idempotent. The check-then-insert is atomic because
// ON CONFLICT is resolved inside the single INSERT statement.
func (db *DB) InsertCharacter(c models.CollectedCharacter) (models.CollectedCharacter, error) {
	res, err := db.conn.Exec(`
		INSERT INTO characters (api_id, name, thumbnail, comics, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(api_id) DO NOTHING
	`, c.ExternalID, c.Name, c.ThumbnailURL, c.ComicsSummary, c.Description)
	if err != nil {
		return models.CollectedCharacter{}, fmt.Errorf("store: insert character: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.CollectedCharacter{}, fmt.Errorf("store: insert character: %w", err)
	}
	if n == 0 {
		existing, err := db.GetCharacterByAPIID(c.ExternalID)
		if err != nil {
			return models.CollectedCharacter{}, err
		}
		return *existing, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.CollectedCharacter{}, fmt.Errorf("store: insert character: %w", err)
	}
	c.LocalID = id
	return c, nil
}

// DeleteCharacter removes a character and all of its notes as one transaction.
// Notes go first so an interrupted cascade can only ever leave a character
// without notes, never a note without its character. Deleting an absent
// character is a no-op.
func (db *DB) DeleteCharacter(localID int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM notes WHERE character_id = ?`, localID); err != nil {
		return fmt.Errorf("store: delete notes of %d: %w", localID, err)
	}
	if _, err := tx.Exec(`DELETE FROM characters WHERE id = ?`, localID); err != nil {
		return fmt.Errorf("store: delete character %d: %w", localID, err)
	}

	return tx.Commit()
}

// GetCharacter returns a character by its store-assigned id.
func (db *DB) GetCharacter(localID int64) (*models.CollectedCharacter, error) {
	return db.scanCharacter(db.conn.QueryRow(`
		SELECT id, api_id, name, thumbnail, comics, description
		FROM characters WHERE id = ?
	`, localID))
}

// GetCharacterByAPIID returns a character by its remote catalog id.
func (db *DB) GetCharacterByAPIID(apiID int) (*models.CollectedCharacter, error) {
	return db.scanCharacter(db.conn.QueryRow(`
		SELECT id, api_id, name, thumbnail, comics, description
		FROM characters WHERE api_id = ?
	`, apiID))
}

// ListCharacters returns the whole collection in insertion order.
func (db *DB) ListCharacters() ([]models.CollectedCharacter, error) {
	rows, err := db.conn.Query(`
		SELECT id, api_id, name, thumbnail, comics, description
		FROM characters ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list characters: %w", err)
	}
	defer rows.Close()

	var out []models.CollectedCharacter
	for rows.Next() {
		var c models.CollectedCharacter
		if err := rows.Scan(&c.LocalID, &c.ExternalID, &c.Name, &c.ThumbnailURL, &c.ComicsSummary, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) scanCharacter(row *sql.Row) (*models.CollectedCharacter, error) {
	var c models.CollectedCharacter
	err := row.Scan(&c.LocalID, &c.ExternalID, &c.Name, &c.ThumbnailURL, &c.ComicsSummary, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan character: %w", err)
	}
	return &c, nil
}
