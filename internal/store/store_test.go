package store

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "comicslibrary-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func spiderMan() models.CollectedCharacter {
	return models.CollectedCharacter{
		ExternalID:    1009610,
		Name:          "Spider-Man",
		ThumbnailURL:  "http://img.example/spiderman.jpg",
		ComicsSummary: "Amazing Fantasy #15, ASM #1",
		Description:   "Friendly neighborhood",
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM characters`).Scan(&count); err != nil {
		t.Fatalf("characters table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestInsertCharacterAssignsID(t *testing.T) {
	db := testDB(t)
	c, err := db.InsertCharacter(spiderMan())
	if err != nil {
		t.Fatalf("InsertCharacter: %v", err)
	}
	if c.LocalID == 0 {
		t.Error("expected assigned local id")
	}
	got, err := db.GetCharacter(c.LocalID)
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if got.Name != "Spider-Man" || got.ExternalID != 1009610 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestInsertCharacter_DuplicateAPIIDIsIdempotent(t *testing.T) {
	db := testDB(t)
	first, err := db.InsertCharacter(spiderMan())
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second, err := db.InsertCharacter(spiderMan())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if second.LocalID != first.LocalID {
		t.Errorf("duplicate insert returned id %d, want existing %d", second.LocalID, first.LocalID)
	}

	all, err := db.ListCharacters()
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after duplicate insert, got %d", len(all))
	}
}

func TestListCharacters_InsertionOrder(t *testing.T) {
	db := testDB(t)
	a := spiderMan()
	b := spiderMan()
	b.ExternalID = 1009220
	b.Name = "Captain America"

	if _, err := db.InsertCharacter(a); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertCharacter(b); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListCharacters()
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
	if all[0].Name != "Spider-Man" || all[1].Name != "Captain America" {
		t.Errorf("order wrong: %q, %q", all[0].Name, all[1].Name)
	}
}

func TestGetCharacter_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetCharacter(99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.GetCharacterByAPIID(99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertNoteAndList(t *testing.T) {
	db := testDB(t)
	c, _ := db.InsertCharacter(spiderMan())

	n, err := db.InsertNote(models.Note{OwnerCharacterID: c.LocalID, Title: "x", Text: "y"})
	if err != nil {
		t.Fatalf("InsertNote: %v", err)
	}
	if n.LocalID == 0 {
		t.Error("expected assigned note id")
	}

	notes, err := db.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 1 || notes[0].Title != "x" {
		t.Fatalf("unexpected notes: %+v", notes)
	}

	owned, err := db.NotesForCharacter(c.LocalID)
	if err != nil {
		t.Fatalf("NotesForCharacter: %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("expected 1 owned note, got %d", len(owned))
	}
}

func TestInsertNote_MissingOwnerIsIntegrityError(t *testing.T) {
	db := testDB(t)
	_, err := db.InsertNote(models.Note{OwnerCharacterID: 12345, Title: "x", Text: "y"})
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	notes, _ := db.ListNotes()
	if len(notes) != 0 {
		t.Fatalf("rejected insert must leave notes unchanged, got %d", len(notes))
	}
}

func TestDeleteCharacter_CascadesNotes(t *testing.T) {
	db := testDB(t)
	c, _ := db.InsertCharacter(spiderMan())
	_, _ = db.InsertNote(models.Note{OwnerCharacterID: c.LocalID, Title: "a", Text: "1"})
	_, _ = db.InsertNote(models.Note{OwnerCharacterID: c.LocalID, Title: "b", Text: "2"})

	if err := db.DeleteCharacter(c.LocalID); err != nil {
		t.Fatalf("DeleteCharacter: %v", err)
	}

	if _, err := db.GetCharacter(c.LocalID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("character still present after delete: %v", err)
	}
	notes, _ := db.ListNotes()
	if len(notes) != 0 {
		t.Errorf("expected 0 notes after cascade, got %d", len(notes))
	}
}

func TestDeleteNote_Idempotent(t *testing.T) {
	db := testDB(t)
	c, _ := db.InsertCharacter(spiderMan())
	n, _ := db.InsertNote(models.Note{OwnerCharacterID: c.LocalID, Title: "a", Text: "1"})

	if err := db.DeleteNote(n.LocalID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if err := db.DeleteNote(n.LocalID); err != nil {
		t.Fatalf("second DeleteNote should be a no-op: %v", err)
	}
}

func TestPurgeOrphanNotes(t *testing.T) {
	f, err := os.CreateTemp("", "comicslibrary-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, _ := db.InsertCharacter(spiderMan())
	_, _ = db.InsertNote(models.Note{OwnerCharacterID: c.LocalID, Title: "a", Text: "1"})

	// Simulate an interrupted cascade by deleting the parent over a second
	// connection that has foreign key enforcement off (SQLite's default).
	raw, err := sql.Open("sqlite3", f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`DELETE FROM characters WHERE id = ?`, c.LocalID); err != nil {
		t.Fatal(err)
	}
	raw.Close()

	purged, err := db.PurgeOrphanNotes()
	if err != nil {
		t.Fatalf("PurgeOrphanNotes: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	notes, _ := db.ListNotes()
	if len(notes) != 0 {
		t.Errorf("expected 0 notes after purge, got %d", len(notes))
	}
}

func TestSearchNotes(t *testing.T) {
	db := testDB(t)
	c, _ := db.InsertCharacter(spiderMan())

	first, err := db.InsertNote(models.Note{
		OwnerCharacterID: c.LocalID,
		Title:            "first appearance",
		Text:             "debuted in Amazing Fantasy 15",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertNote(models.Note{
		OwnerCharacterID: c.LocalID,
		Title:            "powers",
		Text:             "wall crawling and spider sense",
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := db.SearchNotes("debuted", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Note.LocalID != first.LocalID {
		t.Errorf("matched note %d, want %d", matches[0].Note.LocalID, first.LocalID)
	}
	if matches[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestSearchNotes_DeletedNoteDisappears(t *testing.T) {
	db := testDB(t)
	c, _ := db.InsertCharacter(spiderMan())

	n, err := db.InsertNote(models.Note{
		OwnerCharacterID: c.LocalID,
		Title:            "vanishing",
		Text:             "ephemeral content",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteNote(n.LocalID); err != nil {
		t.Fatal(err)
	}

	matches, err := db.SearchNotes("ephemeral", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("deleted note still matches: %+v", matches)
	}
}
