// internal/database/testing.go
package database

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memoryDBCounter int64

// OpenInMemory returns a migrated, isolated in-memory SQLite database. It is
// used by tests and by `serve --memory` for throwaway demos.
func OpenInMemory() (*gorm.DB, error) {
	name := fmt.Sprintf("file:tastecert_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		atomic.AddInt64(&memoryDBCounter, 1))

	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One connection keeps the database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}
