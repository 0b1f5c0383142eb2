package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/logger"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSN adds the pragmas used for every connection
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
}

// Open creates the database file if needed and ensures the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Database.SQLite.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbError(err, "open", "backend", "sqlite", "path", path)
		}
	}

	dsn := sqliteDSN(path)
	err := store.openAndMigrate("sqlite", path, store.Settings,
		func() (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), gormConfig(store.Settings))
		},
		func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			// SQLite allows one writer; a single connection avoids SQLITE_BUSY between pool members
			sqlDB.SetMaxOpenConns(1)
			return nil
		})
	if err != nil {
		GetLogger().Error("Failed to open SQLite database", logger.String("path", path), logger.Error(err))
		return err
	}

	GetLogger().Info("Opened SQLite database", logger.String("path", path))
	return nil
}

// Close SQLite database connection
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}
