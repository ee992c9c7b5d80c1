package test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
)

// GetPostgresDSN returns the DSN from POSTGRES_TEST_DSN after wiping the schema,
// so every test starts from an empty database. Tests sharing the DSN must not run in parallel.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(context.Background(), "DROP TABLE IF EXISTS event; DROP TABLE IF EXISTS watchlist;"); err != nil {
		t.Fatalf("failed to reset postgres schema: %v", err)
	}
	return dsn
}
