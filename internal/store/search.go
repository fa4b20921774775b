//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; SearchNotes uses a LIKE fallback on the notes table.
	return nil
}

// SearchNotes performs a LIKE-based search over note titles and bodies
// (fallback when FTS5 is not compiled in).
func (db *DB) SearchNotes(query string, limit int) ([]NoteMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, character_id, title, text, substr(text, 1, 200)
		FROM notes
		WHERE title LIKE ? OR text LIKE ?
		ORDER BY id
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search notes: %w", err)
	}
	defer rows.Close()

	var out []NoteMatch
	for rows.Next() {
		var m NoteMatch
		if err := rows.Scan(&m.Note.LocalID, &m.Note.OwnerCharacterID, &m.Note.Title, &m.Note.Text, &m.Snippet); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
