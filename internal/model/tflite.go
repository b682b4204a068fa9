package model

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"
	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// TFLiteBackbone runs a headless image model through the TensorFlow Lite
// interpreter, one image per invocation.
type TFLiteBackbone struct {
	path        string
	model       *tflite.Model
	interpreter *tflite.Interpreter
	delegate    *xnnpack.Delegate
	layout      imageLayout
	inputSize   int
	dim         int
	mu          sync.Mutex
}

// NewTFLiteBackbone loads modelPath with the given thread count. With
// useXNNPACK the XNNPACK delegate is tried first and the plain CPU kernels
// are used if it cannot be created.
func NewTFLiteBackbone(modelPath string, threads int, useXNNPACK bool) (*TFLiteBackbone, error) {
	start := time.Now()

	modelData, err := os.ReadFile(modelPath) //nolint:gosec // G304: modelPath is from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			ModelContext("tflite", modelPath).
			Context("operation", "read").
			Timing("model-file-read", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext("tflite", modelPath).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	log := GetLogger()
	b := &TFLiteBackbone{path: modelPath, model: model}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	if useXNNPACK {
		b.delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: thread count bounded by CPU count
		if b.delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to default CPU")
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(b.delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	b.interpreter = tflite.NewInterpreter(model, options)
	if b.interpreter == nil {
		b.Close()
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext("tflite", modelPath).
			Build()
	}
	if status := b.interpreter.AllocateTensors(); status != tflite.OK {
		b.Close()
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext("tflite", modelPath).
			Build()
	}

	input := b.interpreter.GetInputTensor(0)
	dims := make([]int, input.NumDims())
	for i := range dims {
		dims[i] = input.Dim(i)
	}
	if b.layout, err = detectLayout(dims); err != nil {
		b.Close()
		return nil, errors.New(err).Component("model").Category(errors.CategoryModelInit).ModelContext("tflite", modelPath).Build()
	}
	b.inputSize = len(input.Float32s())

	output := b.interpreter.GetOutputTensor(0)
	b.dim = 1
	for i := 1; i < output.NumDims(); i++ {
		b.dim *= output.Dim(i)
	}

	log.Info("TFLite backbone initialized",
		logger.String("model", modelPath),
		logger.String("layout", b.layout.String()),
		logger.Int("feature_dim", b.dim),
		logger.Int("threads", threads),
		logger.Bool("xnnpack", b.delegate != nil),
		logger.Duration("elapsed", time.Since(start)))

	return b, nil
}

func (b *TFLiteBackbone) Name() string    { return "tflite" }
func (b *TFLiteBackbone) FeatureDim() int { return b.dim }

// Embed invokes the interpreter once per image.
func (b *TFLiteBackbone) Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	per := batch.Images.Shape().TotalSize() / batch.Size()
	if per != b.inputSize {
		return nil, errors.Newf("model expects %d input values per image, batch has %d", b.inputSize, per).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext("tflite", b.path).
			Build()
	}

	rows := make([][]float32, batch.Size())
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sampleImage(b.interpreter.GetInputTensor(0).Float32s(), batch, i, b.layout)
		if status := b.interpreter.Invoke(); status != tflite.OK {
			return nil, errors.New(fmt.Errorf("invoke failed: %v", status)).
				Component("model").
				Category(errors.CategoryInference).
				ModelContext("tflite", b.path).
				Context("sample", batch.Indices[i]).
				Build()
		}
		out := b.interpreter.GetOutputTensor(0).Float32s()
		rows[i] = append([]float32(nil), out[:b.dim]...)
	}
	return rowsToDense(rows), nil
}

// Close releases the interpreter, delegate and model.
func (b *TFLiteBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.interpreter != nil {
		b.interpreter.Delete()
		b.interpreter = nil
	}
	if b.delegate != nil {
		b.delegate.Delete()
		b.delegate = nil
	}
	if b.model != nil {
		b.model.Delete()
		b.model = nil
	}
	return nil
}
