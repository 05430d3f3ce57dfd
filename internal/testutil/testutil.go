// Package testutil provides shared test helpers for setting up playlist libraries and catalogs.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/catalog"
	"github.com/starford/stk/internal/storage"
)

// TestCatalog creates a temporary SQLite catalog that is automatically cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "stk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + ".lock")
	})

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary playlist library with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, bpl.Extensions()...)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
