package testutil

import (
	"context"
	"testing"

	"github.com/HerbHall/grandline/internal/store"
)

// NewStore creates an in-memory SQLiteStore with the catalog schema applied.
// The store is automatically closed when the test completes.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db := NewEmptyStore(t)
	if err := db.MigrateSchema(context.Background()); err != nil {
		t.Fatalf("testutil.NewStore: migrate: %v", err)
	}
	return db
}

// NewEmptyStore creates an in-memory SQLiteStore with no schema.
func NewEmptyStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
