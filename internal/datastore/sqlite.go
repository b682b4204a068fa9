package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/diskspace"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// minJournalSpace is the free space required before the journal is opened.
const minJournalSpace = 1 << 20

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the database file, creating its directory, and migrates the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Datastore.SQLite.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbError(err, "open").Context("path", path).Build()
		}
	}
	if err := diskspace.Ensure(filepath.Dir(path), minJournalSpace); err != nil {
		GetLogger().Error("not enough disk space for the run journal",
			logger.String("path", path),
			logger.Error(err))
		return err
	}

	// foreign keys are off by default in sqlite and must be set per connection
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), newGormConfig())
	if err != nil {
		return dbError(err, "open").Context("db_type", "sqlite").Context("path", path).Build()
	}

	store.DB = db
	GetLogger().Debug("sqlite journal opened", logger.String("path", path))
	return performAutoMigration(db, "sqlite")
}

// Close closes the database.
func (store *SQLiteStore) Close() error {
	return store.closeDB()
}
