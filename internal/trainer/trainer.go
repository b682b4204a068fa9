// Package trainer fits the classifier head, selects the best epoch by
// validation AUC and runs inference.
package trainer

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
)

// EpochReport summarises one epoch.
type EpochReport struct {
	Epoch     int // counting from 1
	TrainLoss float64
	ValLoss   float64
	ValAUC    float64
	Improved  bool // this epoch replaced the best model
	Duration  time.Duration
}

// String renders the report the way it is printed after every epoch.
func (r EpochReport) String() string {
	return fmt.Sprintf("Epoch [%d], Train Loss : [%.5f] Val Loss : [%.5f] Val AUC : [%.5f]",
		r.Epoch, r.TrainLoss, r.ValLoss, r.ValAUC)
}

// MetricsRecorder receives operation metrics and epoch summaries.
type MetricsRecorder interface {
	metrics.Recorder
	RecordEpoch(epoch int, trainLoss, valLoss, valAUC float64, improved bool)
}

// EpochHook is called after every epoch, for example to journal it.
type EpochHook func(EpochReport) error

// Result is the outcome of Fit.
type Result struct {
	// Best is the selected classifier. Unless snapshots are enabled it is the
	// live classifier itself, so it carries the parameters of the last epoch.
	Best      *model.Classifier
	BestAUC   float64
	BestEpoch int // 0 when no epoch improved on the initial best
	Reports   []EpochReport
}

// Trainer runs the training loop for one classifier.
type Trainer struct {
	clf      *model.Classifier
	lr       float64
	epochs   int
	snapshot bool
	out      io.Writer
	metrics  MetricsRecorder
	hooks    []EpochHook
	log      logger.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithMetrics records batch and epoch metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(t *Trainer) { t.metrics = m }
}

// WithReportWriter prints one line per epoch to w.
func WithReportWriter(w io.Writer) Option {
	return func(t *Trainer) { t.out = w }
}

// WithEpochHook registers a hook run after every epoch.
func WithEpochHook(h EpochHook) Option {
	return func(t *Trainer) { t.hooks = append(t.hooks, h) }
}

// New creates a trainer for clf using the train settings.
func New(clf *model.Classifier, settings conf.TrainSettings, opts ...Option) *Trainer {
	t := &Trainer{
		clf:      clf,
		lr:       settings.LearningRate,
		epochs:   settings.Epochs,
		snapshot: settings.SnapshotBest,
		out:      io.Discard,
		log:      GetLogger(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.metrics == nil {
		t.metrics = noopMetrics{}
	}
	return t
}

// Fit trains for the configured number of epochs. After each epoch the
// validation AUC is compared with the best so far (initially 0) and replaces
// it only if strictly greater.
func (t *Trainer) Fit(ctx context.Context, train, val *dataset.Loader) (*Result, error) {
	if !train.Dataset().Labelled() || !val.Dataset().Labelled() {
		return nil, errors.Newf("training and validation datasets must be labelled").
			Component("trainer").
			Category(errors.CategoryValidation).
			Build()
	}

	graph, err := newHeadGraph(t.clf.Head, train.BatchSize(), t.lr)
	if err != nil {
		return nil, errors.New(err).
			Component("trainer").
			Category(errors.CategoryTraining).
			Context("operation", "build_graph").
			Build()
	}
	defer graph.Close()

	result := &Result{Best: t.clf}
	for epoch := 1; epoch <= t.epochs; epoch++ {
		start := time.Now()

		trainLoss, err := t.trainEpoch(ctx, graph, train)
		if err != nil {
			return nil, t.epochError(err, epoch, "train")
		}

		valLoss, auc, err := t.validate(ctx, val)
		if err != nil {
			return nil, t.epochError(err, epoch, "validate")
		}

		report := EpochReport{
			Epoch:     epoch,
			TrainLoss: trainLoss,
			ValLoss:   valLoss,
			ValAUC:    auc,
			Duration:  time.Since(start),
		}

		// NaN never compares greater
		if auc > result.BestAUC {
			result.BestAUC = auc
			result.BestEpoch = epoch
			report.Improved = true
			if t.snapshot {
				result.Best = t.clf.Clone()
			} else {
				result.Best = t.clf
			}
		}

		result.Reports = append(result.Reports, report)
		t.metrics.RecordEpoch(epoch, trainLoss, valLoss, auc, report.Improved)
		fmt.Fprintln(t.out, report.String())
		t.log.Info("epoch finished",
			logger.Int("epoch", epoch),
			logger.Float64("train_loss", trainLoss),
			logger.Float64("val_loss", valLoss),
			logger.Float64("val_auc", auc),
			logger.Bool("improved", report.Improved),
			logger.Duration("elapsed", report.Duration))

		for _, h := range t.hooks {
			if err := h(report); err != nil {
				return nil, err
			}
		}
	}

	if result.BestEpoch == 0 {
		t.log.Warn("validation AUC never exceeded 0, keeping the final model")
	}
	return result, nil
}

func (t *Trainer) epochError(err error, epoch int, phase string) error {
	category := errors.CategoryTraining
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryCancellation
	}
	t.metrics.RecordError(phase, string(category))
	return errors.New(err).
		Component("trainer").
		Category(category).
		Context("epoch", epoch).
		Context("phase", phase).
		Build()
}

// trainEpoch runs one pass over the shuffled training batches and returns
// the mean batch loss.
func (t *Trainer) trainEpoch(ctx context.Context, graph *headGraph, loader *dataset.Loader) (float64, error) {
	var losses []float64
	for _, indices := range loader.Epoch() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		start := time.Now()

		batch, err := loader.Load(ctx, indices)
		if err != nil {
			return 0, err
		}

		x, err := t.clf.Embed(ctx, batch)
		if err != nil {
			t.metrics.RecordOperation(metrics.OpTrainBatch, metrics.StatusError)
			return 0, err
		}
		loss, err := graph.step(x, batch.Labels)
		if err != nil {
			t.metrics.RecordOperation(metrics.OpTrainBatch, metrics.StatusError)
			return 0, err
		}

		losses = append(losses, loss)
		t.metrics.RecordOperation(metrics.OpTrainBatch, metrics.StatusSuccess)
		t.metrics.RecordDuration(metrics.OpTrainBatch, time.Since(start).Seconds())
		t.log.Trace("batch", logger.Int("size", batch.Size()), logger.Float64("loss", loss))
	}
	return mean(losses), nil
}

// validate returns the mean batch loss and the AUC over the whole validation set.
func (t *Trainer) validate(ctx context.Context, loader *dataset.Loader) (float64, float64, error) {
	start := time.Now()

	var losses []float64
	var labels []int
	var outputs []*mat.Dense
	for _, indices := range loader.Epoch() {
		batch, err := loader.Load(ctx, indices)
		if err != nil {
			return 0, 0, err
		}
		logits, err := t.clf.Forward(ctx, batch)
		if err != nil {
			t.metrics.RecordOperation(metrics.OpValidate, metrics.StatusError)
			return 0, 0, err
		}
		loss, err := CrossEntropy(logits, batch.Labels)
		if err != nil {
			return 0, 0, err
		}
		losses = append(losses, loss)
		labels = append(labels, batch.Labels...)
		outputs = append(outputs, logits)
	}

	auc := AUC(labels, stackRows(outputs))
	t.metrics.RecordOperation(metrics.OpValidate, metrics.StatusSuccess)
	t.metrics.RecordDuration(metrics.OpValidate, time.Since(start).Seconds())
	return mean(losses), auc, nil
}

// stackRows concatenates matrices with equal column counts vertically.
// It returns nil when there are no rows.
func stackRows(parts []*mat.Dense) *mat.Dense {
	rows, cols := 0, 0
	for _, p := range parts {
		r, c := p.Dims()
		rows += r
		cols = c
	}
	if rows == 0 {
		return nil
	}
	out := mat.NewDense(rows, cols, nil)
	offset := 0
	for _, p := range parts {
		r, _ := p.Dims()
		out.Slice(offset, offset+r, 0, cols).(*mat.Dense).Copy(p)
		offset += r
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

type noopMetrics struct{ metrics.NoOpRecorder }

func (noopMetrics) RecordEpoch(int, float64, float64, float64, bool) {}
