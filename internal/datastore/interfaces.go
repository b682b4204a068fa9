// Package datastore journals training runs and their epochs in SQLite or MySQL.
package datastore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// DefaultSlowQueryThreshold is the duration after which a statement is logged as slow.
const DefaultSlowQueryThreshold = 1 * time.Second

// Interface is the run journal.
type Interface interface {
	Open() error
	Close() error
	StartRun(run *Run) error
	SaveEpoch(epoch *Epoch) error
	FinishRun(id string, outcome Outcome) error
	ListRuns(limit int) ([]Run, error)
	GetRun(id string) (*Run, error)
}

// Outcome is what a finished run records.
type Outcome struct {
	BestAUC        float64
	BestEpoch      int
	SubmissionPath string
	TrainRows      int
	ValRows        int
	TestRows       int
	Err            error // nil for a successful run
}

// DataStore implements the journal operations on a gorm connection.
// SQLiteStore and MySQLStore embed it and provide Open.
type DataStore struct {
	DB *gorm.DB
}

// New returns an unopened store for the configured database type.
func New(settings *conf.Settings) (Interface, error) {
	switch settings.Datastore.Type {
	case conf.DatastoreSQLite:
		return &SQLiteStore{Settings: settings}, nil
	case conf.DatastoreMySQL:
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Datastore.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func newGormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.NewGormLoggerAdapter(GetLogger(), DefaultSlowQueryThreshold)}
}

// performAutoMigration creates or updates the journal tables.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Run{}, &Epoch{}); err != nil {
		return dbError(err, "auto_migrate").Context("db_type", dbType).Build()
	}
	GetLogger().Debug("database schema migrated",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// StartRun inserts run with status running, assigning a UUID and start time
// when they are empty.
func (ds *DataStore) StartRun(run *Run) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning

	if err := ds.DB.Create(run).Error; err != nil {
		return dbError(err, "start_run").Context("run_id", run.ID).Build()
	}
	return nil
}

// SaveEpoch appends an epoch report to its run.
func (ds *DataStore) SaveEpoch(epoch *Epoch) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if err := ds.DB.Create(epoch).Error; err != nil {
		return dbError(err, "save_epoch").Context("run_id", epoch.RunID).Context("epoch", epoch.Epoch).Build()
	}
	return nil
}

// FinishRun marks a run completed, or failed when outcome.Err is set.
func (ds *DataStore) FinishRun(id string, outcome Outcome) error {
	if err := ds.ready(); err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]any{
		"finished_at":     now,
		"status":          StatusCompleted,
		"best_auc":        Nullable(outcome.BestAUC),
		"best_epoch":      outcome.BestEpoch,
		"submission_path": outcome.SubmissionPath,
		"train_rows":      outcome.TrainRows,
		"val_rows":        outcome.ValRows,
		"test_rows":       outcome.TestRows,
		"error":           "",
	}
	if outcome.BestEpoch == 0 {
		updates["best_auc"] = nil
	}
	if outcome.Err != nil {
		updates["status"] = StatusFailed
		updates["error"] = outcome.Err.Error()
	}

	result := ds.DB.Model(&Run{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return dbError(result.Error, "finish_run").Context("run_id", id).Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("run %s not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less returns all.
func (ds *DataStore) ListRuns(limit int) ([]Run, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	query := ds.DB.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, dbError(err, "list_runs").Build()
	}
	return runs, nil
}

// GetRun returns a run with its epochs in order.
func (ds *DataStore) GetRun(id string) (*Run, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var run Run
	err := ds.DB.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("epoch ASC")
	}).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("run_id", id).
			Build()
	}
	if err != nil {
		return nil, dbError(err, "get_run").Context("run_id", id).Build()
	}
	return &run, nil
}

// closeDB closes the underlying sql.DB.
func (ds *DataStore) closeDB() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	ds.DB = nil
	return sqlDB.Close()
}
