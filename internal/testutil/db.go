// Package testutil provides databases and containers for tests.
package testutil

import (
	"testing"

	puresqlite "github.com/glebarez/sqlite"
	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database closed at test cleanup.
// A single connection keeps every query on the same in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(puresqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// NewConfig returns the default configuration for an in-memory database
func NewConfig() *config.Config {
	return &config.Config{
		Port:                "3000",
		DBType:              "sqlite",
		DBDatabase:          ":memory:",
		DBConnectionLimit:   1,
		DBLogLevel:          "silent",
		SyncLogCap:          1000,
		SyncIntervalDefault: 5,
		SyncHistoryLimit:    50,
		AutoSyncEnabled:     true,
		ProviderName:        "Google Fit",
		ProviderBaseURL:     "http://127.0.0.1:1",
	}
}
