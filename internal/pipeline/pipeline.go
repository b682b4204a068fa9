// Package pipeline wires manifest loading, feature extraction, training,
// inference and the submission writer into one run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/datastore"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/manifest"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/submission"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/trainer"
)

// Result summarises a finished run.
type Result struct {
	RunID      string
	TrainRows  int
	ValRows    int
	TestRows   int
	Reports    []trainer.EpochReport
	BestAUC    float64
	BestEpoch  int
	Submission *submission.Summary
	Elapsed    time.Duration
}

type options struct {
	report       io.Writer
	progress     *bool
	progressOut  io.Writer
	extractorOps []features.Option
}

// Option configures Run.
type Option func(*options)

// WithReportWriter prints epoch lines and the final table to w.
func WithReportWriter(w io.Writer) Option {
	return func(o *options) { o.report = w }
}

// WithProgress forces extraction progress bars on or off.
func WithProgress(enabled bool, w io.Writer) Option {
	return func(o *options) {
		o.progress = &enabled
		o.progressOut = w
	}
}

// WithExtractorOptions passes extra options to the feature extractor.
func WithExtractorOptions(opts ...features.Option) Option {
	return func(o *options) { o.extractorOps = append(o.extractorOps, opts...) }
}

// run carries the state of one pipeline invocation.
type run struct {
	id       string
	settings *conf.Settings
	opts     options
	metrics  *observability.Metrics
	journal  datastore.Interface
	log      logger.Logger
}

// Run executes the whole pipeline: load and split the manifests, extract
// features, train with validation-based selection, predict the test set and
// write the submission. Any failure aborts the run.
func Run(ctx context.Context, settings *conf.Settings, opts ...Option) (_ *Result, err error) {
	start := time.Now()
	r := &run{id: uuid.NewString(), settings: settings, opts: options{report: io.Discard}}
	for _, o := range opts {
		o(&r.opts)
	}

	ctx = logger.WithTraceID(ctx, r.id)
	r.log = GetLogger().WithContext(ctx)

	if r.metrics, err = observability.NewMetrics(); err != nil {
		return nil, errors.New(err).Component("pipeline").Category(errors.CategorySystem).Build()
	}

	result := &Result{RunID: r.id}
	if err := r.openJournal(); err != nil {
		return nil, err
	}
	defer func() {
		r.closeJournal(result, err)
		if gauges, gerr := r.metrics.Gauges(); gerr == nil {
			r.log.Debug("final metrics", logger.Any("gauges", gauges))
		}
		if werr := r.metrics.WriteTextfile(settings.Telemetry.MetricsFile); werr != nil {
			r.log.Warn("failed to export metrics", logger.Error(werr))
		}
	}()

	r.log.Info("run started",
		logger.String("run_id", r.id),
		logger.String("backbone", settings.Model.Backbone),
		logger.Int("epochs", settings.Train.Epochs))

	if err := r.execute(ctx, result); err != nil {
		r.log.Error("run failed", logger.Error(err))
		return nil, err
	}

	result.Elapsed = time.Since(start)
	r.log.Info("run finished",
		logger.Float64("best_auc", result.BestAUC),
		logger.Int("best_epoch", result.BestEpoch),
		logger.String("submission", result.Submission.Path),
		logger.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (r *run) execute(ctx context.Context, result *Result) error {
	s := r.settings

	full, err := manifest.Load(s.Paths.Resolve(s.Paths.Train), true)
	if err != nil {
		return err
	}
	test, err := manifest.Load(s.Paths.Resolve(s.Paths.Test), false)
	if err != nil {
		return err
	}
	train, val, err := manifest.Split(full, s.Train.ValFraction, s.Train.Seed)
	if err != nil {
		return err
	}
	result.TrainRows, result.ValRows, result.TestRows = train.Len(), val.Len(), test.Len()
	r.log.Info("manifests loaded",
		logger.Int("train", train.Len()),
		logger.Int("val", val.Len()),
		logger.Int("test", test.Len()))

	extractor, err := r.newExtractor()
	if err != nil {
		return err
	}
	trainLoader, err := r.loader(ctx, extractor, train, true, true)
	if err != nil {
		return err
	}
	valLoader, err := r.loader(ctx, extractor, val, true, false)
	if err != nil {
		return err
	}
	testLoader, err := r.loader(ctx, extractor, test, false, false)
	if err != nil {
		return err
	}

	clf, err := model.New(s)
	if err != nil {
		r.metrics.Training.RecordOperation(metrics.OpModelLoad, metrics.StatusError)
		return err
	}
	defer func() {
		if cerr := clf.Close(); cerr != nil {
			r.log.Warn("failed to release backbone", logger.Error(cerr))
		}
	}()
	r.metrics.Training.RecordOperation(metrics.OpModelLoad, metrics.StatusSuccess)

	t := trainer.New(clf, s.Train,
		trainer.WithMetrics(r.metrics.Training),
		trainer.WithReportWriter(r.opts.report),
		trainer.WithEpochHook(r.journalEpoch))
	fit, err := t.Fit(ctx, trainLoader, valLoader)
	if err != nil {
		return err
	}
	result.Reports = fit.Reports
	result.BestAUC = fit.BestAUC
	result.BestEpoch = fit.BestEpoch

	scores, err := trainer.Predict(ctx, fit.Best, testLoader, s.Predict.Softmax, r.metrics.Training)
	if err != nil {
		return err
	}

	start := time.Now()
	summary, err := submission.Write(s.Paths.Resolve(s.Paths.Template), s.Paths.Resolve(s.Paths.Output), scores)
	if err != nil {
		r.metrics.Training.RecordOperation(metrics.OpSubmission, metrics.StatusError)
		return err
	}
	r.metrics.Training.RecordOperation(metrics.OpSubmission, metrics.StatusSuccess)
	r.metrics.Training.RecordDuration(metrics.OpSubmission, time.Since(start).Seconds())
	result.Submission = summary

	fmt.Fprintln(r.opts.report, trainer.RenderReports(result.Reports))
	return nil
}

func (r *run) newExtractor() (*features.Extractor, error) {
	opts := []features.Option{features.WithObserver(r.metrics.Features)}
	if r.opts.progress != nil {
		opts = append(opts, features.WithProgress(*r.opts.progress, r.opts.progressOut))
	}
	opts = append(opts, r.opts.extractorOps...)
	return features.NewExtractor(r.settings, opts...)
}

// loader extracts the features of m and wraps them in a batch loader.
func (r *run) loader(ctx context.Context, e *features.Extractor, m *manifest.Manifest, withLabels, shuffle bool) (*dataset.Loader, error) {
	start := time.Now()
	set, err := e.Extract(ctx, m, withLabels)
	if err != nil {
		r.metrics.Training.RecordOperation(metrics.OpExtract, metrics.StatusError)
		return nil, err
	}
	r.metrics.Training.RecordOperation(metrics.OpExtract, metrics.StatusSuccess)
	r.metrics.Training.RecordDuration(metrics.OpExtract, time.Since(start).Seconds())

	ds, err := dataset.New(set, r.settings.Dataset.ImageSize, r.settings.Dataset.Antialias)
	if err != nil {
		return nil, err
	}
	return dataset.NewLoader(ds, r.settings.Train.BatchSize, shuffle, r.settings.Train.Seed), nil
}
