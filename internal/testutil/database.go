// Package testutil provides shared test fixtures for ecolens packages.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/storage"
)

// TestDB represents a migrated in-memory database with seeding helpers.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. Migrations run
// automatically and the database is closed when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Scans          []model.ScanRecord
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	db.SeedScans(opts.Scans...)

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// SeedScans appends records to the history or fails the test.
func (db *TestDB) SeedScans(records ...model.ScanRecord) {
	db.t.Helper()
	ctx := context.Background()
	for i, r := range records {
		if err := db.Storage.AppendScanRecord(ctx, r); err != nil {
			db.t.Fatalf("failed to seed scan %d: %v", i, err)
		}
	}
}

// SeedExperience awards xp to userID or fails the test.
func (db *TestDB) SeedExperience(userID string, xp int) {
	db.t.Helper()
	if err := db.Storage.IncreaseExperience(context.Background(), userID, xp); err != nil {
		db.t.Fatalf("failed to seed experience for %q: %v", userID, err)
	}
}

// ScanSeries builds n scans for userID, one minute apart starting at start,
// cycling through categories.
func ScanSeries(userID string, start time.Time, n int, categories ...model.Category) []model.ScanRecord {
	if len(categories) == 0 {
		categories = []model.Category{model.Unknown}
	}
	records := make([]model.ScanRecord, n)
	for i := range records {
		records[i] = model.ScanRecord{
			ID:          fmt.Sprintf("%s-scan-%03d", userID, i),
			UserID:      userID,
			Category:    categories[i%len(categories)],
			ObjectLabel: fmt.Sprintf("object %d", i),
			Confidence:  0.5,
			ScannedAt:   start.Add(time.Duration(i) * time.Minute),
		}
	}
	return records
}
