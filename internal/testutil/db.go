// Package testutil provides shared helpers for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"quill/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// OpenTestDB opens an isolated in-memory SQLite database with the full
// schema applied. Each call gets its own database, so tests stay independent.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// The counter keeps the DSN unique per call; reusing only t.Name()
	// would hand the same shared in-memory database to repeated calls
	// within one test.
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// SQLite serializes writes; a single connection avoids table-lock errors.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}
