// Package testutil provides shared test helpers for setting up stores and
// repositories over temporary SQLite databases.
package testutil

import (
	"os"
	"testing"

	"github.com/gauravkale/ComicsLibrary/internal/collection"
	"github.com/gauravkale/ComicsLibrary/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "comicslibrary-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRepository creates a collection repository over a temporary store.
func TestRepository(t *testing.T) *collection.Repository {
	t.Helper()
	repo, err := collection.New(TestStore(t), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(repo.Close)
	return repo
}
