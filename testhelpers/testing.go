package testhelpers

import (
	"context"
	"os"
	"testing"

	"schoolprops/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// tables in truncation order.
var tables = []string{"request_events", "reservations", "requests", "inventory_items", "purchases", "budget"}

// SetupTestDB connects to connString, or TEST_DATABASE_URL when it is empty, and
// migrates the schema. The test is skipped when no database is configured. Tables
// are emptied before the test and again on cleanup.
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
	}
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db := &TestDB{Pool: pool}
	db.Truncate(t)
	db.Cleanup = func() {
		db.Truncate(t)
		pool.Close()
	}
	t.Cleanup(db.Cleanup)
	return db
}

// Truncate empties every table.
func (db *TestDB) Truncate(t *testing.T) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}
