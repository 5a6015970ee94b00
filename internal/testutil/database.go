package testutil

import (
	"testing"

	"wp-migrate/internal/database"
	"wp-migrate/internal/migrate"
)

// NewTestDatabase creates a new in-memory SQLite run store with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) migrate.RunStore {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
