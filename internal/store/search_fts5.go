//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

// The FTS index mirrors the notes table through triggers, so the Go mutation
// paths never touch it directly.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			title,
			text,
			content = 'notes',
			content_rowid = 'id',
			tokenize = 'unicode61 remove_diacritics 2'
		);

		CREATE TRIGGER IF NOT EXISTS notes_fts_insert AFTER INSERT ON notes BEGIN
			INSERT INTO notes_fts (rowid, title, text) VALUES (new.id, new.title, new.text);
		END;
		CREATE TRIGGER IF NOT EXISTS notes_fts_delete AFTER DELETE ON notes BEGIN
			INSERT INTO notes_fts (notes_fts, rowid, title, text) VALUES ('delete', old.id, old.title, old.text);
		END;
		CREATE TRIGGER IF NOT EXISTS notes_fts_update AFTER UPDATE ON notes BEGIN
			INSERT INTO notes_fts (notes_fts, rowid, title, text) VALUES ('delete', old.id, old.title, old.text);
			INSERT INTO notes_fts (rowid, title, text) VALUES (new.id, new.title, new.text);
		END;
	`)
	return err
}

// SearchNotes performs an FTS5 full-text search over note titles and bodies
// and returns matching notes with snippets, best match first.
func (db *DB) SearchNotes(query string, limit int) ([]NoteMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT n.id,
		       n.character_id,
		       n.title,
		       n.text,
		       snippet(notes_fts, 1, '<b>', '</b>', '...', 64)
		FROM notes_fts
		JOIN notes n ON n.id = notes_fts.rowid
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
