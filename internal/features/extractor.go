package features

import (
	"context"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/patrickmn/go-cache"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/manifest"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/myaudio"
)

// LoadFunc decodes a file into mono samples at the target rate.
type LoadFunc func(path string, targetRate int, resampler string) ([]float32, error)

// Observer is notified after each decoded file. Implementations must be safe
// for concurrent use.
type Observer interface {
	FileDecoded(duration time.Duration)
}

// Set is the output of one extraction pass, in manifest order.
type Set struct {
	Features []*Spectrogram
	Labels   []int // nil unless labels were requested
}

// Len returns the number of extracted spectrograms.
func (s *Set) Len() int { return len(s.Features) }

// Extractor turns manifest rows into log-power mel spectrograms.
type Extractor struct {
	root         string
	sampleRate   int
	resampler    string
	workers      int
	strictLabels bool
	progress     bool

	transform *MelTransform
	load      LoadFunc
	memo      *cache.Cache
	observer  Observer
	output    io.Writer
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithLoader replaces the audio loader.
func WithLoader(load LoadFunc) Option {
	return func(e *Extractor) { e.load = load }
}

// WithObserver registers a per-file observer.
func WithObserver(o Observer) Option {
	return func(e *Extractor) { e.observer = o }
}

// WithProgress forces progress bars on or off. By default they are drawn
// only when stderr is a terminal.
func WithProgress(enabled bool, w io.Writer) Option {
	return func(e *Extractor) {
		e.progress = enabled
		e.output = w
	}
}

// NewExtractor builds an extractor from settings.
func NewExtractor(settings *conf.Settings, opts ...Option) (*Extractor, error) {
	transform, err := NewMelTransform(MelConfig{
		SampleRate: settings.Audio.SampleRate,
		NFFT:       settings.Features.NFFT,
		HopLength:  settings.Features.HopLength,
		NMels:      settings.Features.NMels,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryConfiguration).
			Build()
	}

	workers := settings.Features.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e := &Extractor{
		root:         settings.Paths.Root,
		sampleRate:   settings.Audio.SampleRate,
		resampler:    settings.Audio.Resampler,
		workers:      workers,
		strictLabels: settings.Manifest.StrictLabels,
		progress:     isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		output:       os.Stderr,
		transform:    transform,
		load:         myaudio.Load,
	}
	if settings.Features.Memo {
		// entries live for the extractor's lifetime only; no janitor goroutine
		e.memo = cache.New(cache.NoExpiration, 0)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Transform returns the mel transform used by the extractor.
func (e *Extractor) Transform() *MelTransform { return e.transform }

// ExtractFile computes the log-power mel spectrogram of one file.
// Relative paths are resolved under the configured root.
func (e *Extractor) ExtractFile(path string) (*Spectrogram, error) {
	resolved := conf.PathSettings{Root: e.root}.Resolve(path)

	if e.memo != nil {
		if cached, ok := e.memo.Get(resolved); ok {
			return cached.(*Spectrogram), nil
		}
	}

	start := time.Now()
	samples, err := e.load(resolved, e.sampleRate, e.resampler)
	if err != nil {
		return nil, err
	}
	if e.observer != nil {
		e.observer.FileDecoded(time.Since(start))
	}

	spec := e.transform.LogMelSpectrogram(samples)
	if e.memo != nil {
		e.memo.SetDefault(resolved, spec)
	}
	return spec, nil
}

// Extract computes features for every row of m, preserving manifest order.
// Files are decoded concurrently; the first failure cancels the remaining
// work and is returned. When withLabels is set the row labels are encoded too.
func (e *Extractor) Extract(ctx context.Context, m *manifest.Manifest, withLabels bool) (*Set, error) {
	set := &Set{Features: make([]*Spectrogram, m.Len())}
	if withLabels {
		labels, err := m.Labels(e.strictLabels)
		if err != nil {
			return nil, err
		}
		set.Labels = labels
	}

	log := GetLogger().WithContext(ctx)
	start := time.Now()

	var bar *mpb.Bar
	var progress *mpb.Progress
	if e.progress && m.Len() > 0 {
		progress = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(e.output))
		bar = progress.AddBar(int64(m.Len()),
			mpb.PrependDecorators(
				decor.Name("Extracting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range m.Rows {
		path := m.Rows[i].Path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			itemStart := time.Now()
			spec, err := e.ExtractFile(path)
			if err != nil {
				return errors.New(err).
					Component("features").
					Category(errors.CategoryFeature).
					Context("row", i+1).
					Context("path", path).
					Build()
			}
			set.Features[i] = spec
			done.Add(1)
			if bar != nil {
				bar.EwmaIncrement(time.Since(itemStart))
			}
			return nil
		})
	}

	err := g.Wait()
	if progress != nil {
		if err != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(ctx.Err()).
				Component("features").
				Category(errors.CategoryCancellation).
				Context("completed", done.Load()).
				Build()
		}
		return nil, err
	}

	log.Info("features extracted",
		logger.String("source", m.Source),
		logger.Int("rows", m.Len()),
		logger.Int("workers", e.workers),
		logger.Duration("elapsed", time.Since(start)))

	return set, nil
}
