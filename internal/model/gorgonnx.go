package model

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// GorgonnxBackbone evaluates an ONNX graph in pure Go through the gorgonia
// backend. It needs no shared library but supports a subset of operators and
// one NCHW image per run.
type GorgonnxBackbone struct {
	path     string
	model    *onnx.Model
	backend  *gorgonnx.Graph
	channels int
	size     int
	dim      int
	mu       sync.Mutex
}

// NewGorgonnxBackbone decodes modelPath and runs it once on a blank image of
// channels x size x size to learn the embedding width.
func NewGorgonnxBackbone(modelPath string, channels, size int) (*GorgonnxBackbone, error) {
	start := time.Now()

	data, err := os.ReadFile(modelPath) //nolint:gosec // G304: modelPath is from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			ModelContext("gorgonnx", modelPath).
			Build()
	}

	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	if err := model.UnmarshalBinary(data); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("gorgonnx", modelPath).
			Context("model_size", len(data)).
			Build()
	}

	b := &GorgonnxBackbone{
		path:     modelPath,
		model:    model,
		backend:  backend,
		channels: channels,
		size:     size,
	}

	blank, err := b.runOne(make([]float32, channels*size*size))
	if err != nil {
		return nil, err
	}
	b.dim = len(blank)

	GetLogger().Info("gorgonnx backbone initialized",
		logger.String("model", modelPath),
		logger.Int("feature_dim", b.dim),
		logger.Duration("elapsed", time.Since(start)))

	return b, nil
}

func (b *GorgonnxBackbone) Name() string    { return "gorgonnx" }
func (b *GorgonnxBackbone) FeatureDim() int { return b.dim }

// Embed runs the graph once per image.
func (b *GorgonnxBackbone) Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	per := b.channels * b.size * b.size
	if got := batch.Images.Shape().TotalSize() / batch.Size(); got != per {
		return nil, errors.Newf("backbone expects %d values per image, batch has %d", per, got).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext("gorgonnx", b.path).
			Build()
	}

	rows := make([][]float32, batch.Size())
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := make([]float32, per)
		sampleImage(img, batch, i, layoutNCHW)
		out, err := b.runOne(img)
		if err != nil {
			return nil, err
		}
		if len(out) != b.dim {
			return nil, errors.Newf("backbone returned %d values, want %d", len(out), b.dim).
				Component("model").
				Category(errors.CategoryInference).
				ModelContext("gorgonnx", b.path).
				Build()
		}
		rows[i] = out
	}
	return rowsToDense(rows), nil
}

func (b *GorgonnxBackbone) runOne(img []float32) ([]float32, error) {
	input := tensor.New(
		tensor.WithShape(1, b.channels, b.size, b.size),
		tensor.WithBacking(img),
	)
	if err := b.model.SetInput(0, input); err != nil {
		return nil, errors.New(err).Component("model").Category(errors.CategoryInference).ModelContext("gorgonnx", b.path).Build()
	}
	if err := b.backend.Run(); err != nil {
		return nil, errors.New(err).Component("model").Category(errors.CategoryInference).ModelContext("gorgonnx", b.path).Build()
	}
	outputs, err := b.model.GetOutputTensors()
	if err != nil {
		return nil, errors.New(err).Component("model").Category(errors.CategoryInference).ModelContext("gorgonnx", b.path).Build()
	}
	if len(outputs) == 0 {
		return nil, errors.Newf("model produced no outputs").Component("model").Category(errors.CategoryInference).ModelContext("gorgonnx", b.path).Build()
	}

	out, ok := outputs[0].Data().([]float32)
	if !ok {
		return nil, errors.Newf("model output is not float32").Component("model").Category(errors.CategoryInference).ModelContext("gorgonnx", b.path).Build()
	}
	return append([]float32(nil), out...), nil
}

// Close drops the graph; gorgonia holds no native resources.
func (b *GorgonnxBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = nil
	b.backend = nil
	return nil
}
