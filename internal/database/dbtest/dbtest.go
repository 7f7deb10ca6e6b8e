// Package dbtest opens throwaway in-memory SQLite databases with the full schema,
// so handler tests exercise real SQL without a Postgres server.
package dbtest

import (
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/database"
)

// New returns a migrated, empty database that is closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Config(zerolog.Nop()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// Every pooled connection to ":memory:" would get its own empty database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
