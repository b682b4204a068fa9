package pipeline

import (
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/datastore"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/trainer"
)

// openJournal opens the run journal when it is enabled and records the run start.
func (r *run) openJournal() error {
	if !r.settings.Datastore.Enabled {
		return nil
	}
	store, err := datastore.New(r.settings)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}

	t := r.settings.Train
	if err := store.StartRun(&datastore.Run{
		ID:           r.id,
		Backbone:     r.settings.Model.Backbone,
		Device:       r.settings.Model.Device,
		Epochs:       t.Epochs,
		BatchSize:    t.BatchSize,
		LearningRate: t.LearningRate,
		Seed:         t.Seed,
	}); err != nil {
		_ = store.Close()
		return err
	}
	r.journal = store
	return nil
}

func (r *run) journalEpoch(rep trainer.EpochReport) error {
	if r.journal == nil {
		return nil
	}
	err := r.journal.SaveEpoch(&datastore.Epoch{
		RunID:      r.id,
		Epoch:      rep.Epoch,
		TrainLoss:  datastore.Nullable(rep.TrainLoss),
		ValLoss:    datastore.Nullable(rep.ValLoss),
		ValAUC:     datastore.Nullable(rep.ValAUC),
		Improved:   rep.Improved,
		DurationMs: rep.Duration.Milliseconds(),
	})
	if err != nil {
		r.metrics.Training.RecordError(metrics.OpJournal, "database")
	}
	return err
}

// closeJournal records the outcome and closes the journal. Journal failures
// here are logged rather than returned so they never mask the run error.
func (r *run) closeJournal(result *Result, runErr error) {
	if r.journal == nil {
		return
	}
	outcome := datastore.Outcome{Err: runErr}
	if result != nil {
		outcome.BestAUC = result.BestAUC
		outcome.BestEpoch = result.BestEpoch
		outcome.TrainRows = result.TrainRows
		outcome.ValRows = result.ValRows
		outcome.TestRows = result.TestRows
		if result.Submission != nil {
			outcome.SubmissionPath = result.Submission.Path
		}
	}
	if err := r.journal.FinishRun(r.id, outcome); err != nil {
		r.log.Warn("failed to finish journal run", logger.Error(err))
	}
	if err := r.journal.Close(); err != nil {
		r.log.Warn("failed to close journal", logger.Error(err))
	}
}
