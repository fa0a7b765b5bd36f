package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/onnwee/playtime/db"
)

// SetupTestDB creates a Postgres test database connection and runs migrations.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	database, err := db.Connect(ctx, db.Postgres, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(ctx, database, db.Postgres); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	for _, table := range []string{"league_accounts", "games", "users"} {
		if _, err := database.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			database.Close()
			t.Fatalf("failed to clean %s: %v", table, err)
		}
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// SetupSQLiteDB opens a private in-memory sqlite database with the schema applied.
func SetupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, db.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(ctx, database, db.SQLite); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
