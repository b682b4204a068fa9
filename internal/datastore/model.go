package datastore

import (
	"math"
	"time"
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one invocation of the training pipeline.
type Run struct {
	ID         string     `gorm:"primaryKey;size:36"`
	StartedAt  time.Time  `gorm:"index"`
	FinishedAt *time.Time // nil while running
	Status     string     `gorm:"size:16;index"`

	Backbone     string `gorm:"size:32"`
	Device       string `gorm:"size:16"`
	Epochs       int    // configured epoch count
	BatchSize    int
	LearningRate float64
	Seed         uint64
	TrainRows    int
	ValRows      int
	TestRows     int

	BestAUC        *float64 // nil until an epoch improves on 0
	BestEpoch      int
	SubmissionPath string `gorm:"size:1024"`
	Error          string `gorm:"type:text"`

	History []Epoch `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// Epoch is the report of one training epoch.
type Epoch struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"size:36;index;not null"`
	Epoch      int
	TrainLoss  *float64
	ValLoss    *float64
	ValAUC     *float64 // nil when the AUC is undefined
	Improved   bool
	DurationMs int64
}

// Nullable maps NaN and infinities, which neither driver stores, to nil.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
