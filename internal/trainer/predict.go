package trainer

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
)

// Predict runs clf over every batch of loader without updating it and returns
// one row of scores per sample in loader order. Scores are raw logits unless
// softmax is set.
func Predict(ctx context.Context, clf *model.Classifier, loader *dataset.Loader, softmax bool, rec metrics.Recorder) (*mat.Dense, error) {
	if rec == nil {
		rec = metrics.NoOpRecorder{}
	}
	start := time.Now()

	var outputs []*mat.Dense
	for _, indices := range loader.Epoch() {
		batch, err := loader.Load(ctx, indices)
		if err != nil {
			return nil, predictError(err, rec)
		}
		logits, err := clf.Forward(ctx, batch)
		if err != nil {
			return nil, predictError(err, rec)
		}
		outputs = append(outputs, logits)
	}

	scores := stackRows(outputs)
	if scores == nil {
		return nil, errors.Newf("no samples to predict").
			Component("trainer").
			Category(errors.CategoryInference).
			Build()
	}
	if softmax {
		scores = Softmax(scores)
	}

	rows, _ := scores.Dims()
	rec.RecordOperation(metrics.OpPredict, metrics.StatusSuccess)
	rec.RecordDuration(metrics.OpPredict, time.Since(start).Seconds())
	GetLogger().Info("inference finished",
		logger.Int("rows", rows),
		logger.Bool("softmax", softmax),
		logger.Duration("elapsed", time.Since(start)))
	return scores, nil
}

func predictError(err error, rec metrics.Recorder) error {
	category := errors.CategoryInference
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryCancellation
	}
	rec.RecordOperation(metrics.OpPredict, metrics.StatusError)
	rec.RecordError(metrics.OpPredict, string(category))
	return errors.New(err).Component("trainer").Category(category).Context("phase", "predict").Build()
}
