package benchmark

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
)

// flag values
var (
	batchSize   int
	duration    time.Duration
	compareMode bool
)

// Command creates the benchmark command, which measures backbone embedding
// throughput on synthetic spectrogram images.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure backbone inference throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batchSize < 1 || batchSize > 512 {
				return fmt.Errorf("batch size must be between 1 and 512, got %d", batchSize)
			}

			devices := []string{settings.Model.Device}
			if compareMode {
				devices = []string{conf.DeviceCPU, acceleratedDevice(settings.Model.Backbone)}
			}

			var results []benchmarkResults
			for _, device := range devices {
				s := *settings
				s.Model.Device = device
				fmt.Fprintf(cmd.ErrOrStderr(), "running %s on %s for %s\n", s.Model.Backbone, device, duration)

				res, err := runInferenceBenchmark(cmd.Context(), &s, batchSize, duration)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s benchmark failed: %v\n", device, err)
					continue
				}
				results = append(results, res)
			}
			if len(results) == 0 {
				return fmt.Errorf("no benchmark completed")
			}
			render(cmd.OutOrStdout(), results, batchSize)
			return nil
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch", "b", 1, "batch size for inference (1-512)")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to run each benchmark")
	cmd.Flags().BoolVar(&compareMode, "compare", false, "compare cpu against the backbone's accelerated device")

	return cmd
}

// acceleratedDevice is the non-cpu device each runtime supports.
func acceleratedDevice(backbone string) string {
	switch backbone {
	case conf.BackboneTFLite:
		return conf.DeviceXNNPACK
	case conf.BackboneONNX:
		return conf.DeviceCUDA
	default:
		return conf.DeviceAuto
	}
}

// benchmarkResults stores benchmark metrics
type benchmarkResults struct {
	device           string
	backbone         string
	totalInferences  int           // number of Embed calls
	totalSamples     int           // totalInferences * batch size
	avgBatchTime     time.Duration // average time per Embed call
	avgTimePerSample float64       // milliseconds
	samplesPerSecond float64
}

func runInferenceBenchmark(ctx context.Context, settings *conf.Settings, batch int, d time.Duration) (benchmarkResults, error) {
	res := benchmarkResults{device: settings.Model.Device}

	backbone, err := model.NewBackbone(settings)
	if err != nil {
		return res, err
	}
	defer backbone.Close()
	res.backbone = backbone.Name()

	b := syntheticBatch(batch, settings.Dataset.ImageSize, settings.Train.Seed)

	// warmup
	if _, err := backbone.Embed(ctx, b); err != nil {
		return res, err
	}

	start := time.Now()
	var total time.Duration
	for time.Since(start) < d && ctx.Err() == nil {
		t0 := time.Now()
		if _, err := backbone.Embed(ctx, b); err != nil {
			return res, err
		}
		total += time.Since(t0)
		res.totalInferences++
	}
	if res.totalInferences == 0 {
		return res, ctx.Err()
	}

	res.totalSamples = res.totalInferences * batch
	res.avgBatchTime = total / time.Duration(res.totalInferences)
	res.avgTimePerSample = float64(res.avgBatchTime.Microseconds()) / 1000 / float64(batch)
	res.samplesPerSecond = float64(res.totalSamples) / total.Seconds()
	return res, nil
}

// syntheticBatch fills a batch with uniform noise in [0, 1), the range of a
// normalised spectrogram image.
func syntheticBatch(n, size int, seed uint64) *dataset.Batch {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	data := make([]float32, n*conf.ImageChannel*size*size)
	for i := range data {
		data[i] = rng.Float32()
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return &dataset.Batch{
		Indices: indices,
		Images:  tensor.New(tensor.WithShape(n, conf.ImageChannel, size, size), tensor.WithBacking(data)),
	}
}

func render(w io.Writer, results []benchmarkResults, batch int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Backbone", "Device", "Batch", "Batch Time", "Per-Sample", "Throughput"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.backbone,
			r.device,
			batch,
			r.avgBatchTime.Round(time.Microsecond).String(),
			fmt.Sprintf("%.2f ms", r.avgTimePerSample),
			fmt.Sprintf("%.1f samples/sec", r.samplesPerSecond),
		})
	}
	t.Render()

	if len(results) == 2 && results[0].avgBatchTime > 0 {
		speedup := float64(results[0].avgBatchTime) / float64(results[1].avgBatchTime)
		fmt.Fprintf(w, "%s is %.2fx the speed of %s\n", results[1].device, speedup, results[0].device)
	}
}
