package model

import (
	"context"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// EnvONNXLibrary overrides the onnxruntime shared library location when the
// configured path is empty.
const EnvONNXLibrary = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

// initONNXRuntime loads the shared library and creates the process-wide
// environment once.
func initONNXRuntime(libPath string) error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}
	if libPath == "" {
		libPath = os.Getenv(EnvONNXLibrary)
	}
	if libPath != "" {
		GetLogger().Debug("using onnxruntime library", logger.String("path", libPath))
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}
	onnxInitialized = true
	return nil
}

// ONNXOptions configures an ONNX Runtime backbone.
type ONNXOptions struct {
	ModelPath   string
	LibraryPath string
	InputName   string // empty picks the first model input
	OutputName  string // empty picks the first model output
	Threads     int
	UseCUDA     bool
}

// ONNXBackbone runs a headless image model with ONNX Runtime.
type ONNXBackbone struct {
	path    string
	session *ort.DynamicAdvancedSession
	layout  imageLayout
	dynamic bool // input accepts any batch size
	dim     int
	device  string
	mu      sync.Mutex
}

// NewONNXBackbone opens a session on opts.ModelPath. CUDA is requested when
// opts.UseCUDA is set; if the provider cannot be appended, or the CUDA session
// fails to start, the session runs on CPU.
func NewONNXBackbone(opts ONNXOptions) (*ONNXBackbone, error) {
	start := time.Now()
	log := GetLogger()

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("onnx", opts.ModelPath).
			Build()
	}

	if err := initONNXRuntime(opts.LibraryPath); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext("onnx", opts.ModelPath).
			Context("library_path", opts.LibraryPath).
			Build()
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("onnx", opts.ModelPath).
			Context("operation", "read_io_info").
			Build()
	}
	if len(inputInfo) == 0 || len(outputInfo) == 0 {
		return nil, errors.Newf("model declares no inputs or outputs").
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("onnx", opts.ModelPath).
			Build()
	}

	in, ok := pickInfo(inputInfo, opts.InputName)
	if !ok {
		return nil, errors.Newf("model has no input named %q", opts.InputName).
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("onnx", opts.ModelPath).
			Build()
	}
	out, ok := pickInfo(outputInfo, opts.OutputName)
	if !ok {
		return nil, errors.Newf("model has no output named %q", opts.OutputName).
			Component("model").
			Category(errors.CategoryModelLoad).
			ModelContext("onnx", opts.ModelPath).
			Build()
	}

	inDims := make([]int, len(in.Dimensions))
	for i, d := range in.Dimensions {
		inDims[i] = int(d)
	}
	layout, err := detectLayout(inDims)
	if err != nil {
		return nil, errors.New(err).Component("model").Category(errors.CategoryModelLoad).ModelContext("onnx", opts.ModelPath).Build()
	}

	open := func(cuda bool) (*ort.DynamicAdvancedSession, string, error) {
		return openONNXSession(opts, in.Name, out.Name, cuda, log)
	}
	session, device, err := openWithCPUFallback(open, opts.UseCUDA, log)
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryModelInit).
			ModelContext("onnx", opts.ModelPath).
			Context("device", device).
			Build()
	}

	b := &ONNXBackbone{
		path:    opts.ModelPath,
		session: session,
		layout:  layout,
		dynamic: inDims[0] <= 0,
		device:  device,
	}
	if b.dim, err = outputWidth(out.Dimensions); err != nil {
		_ = b.Close()
		return nil, errors.New(err).Component("model").Category(errors.CategoryModelLoad).ModelContext("onnx", opts.ModelPath).Build()
	}

	log.Info("ONNX backbone initialized",
		logger.String("model", opts.ModelPath),
		logger.String("input", in.Name),
		logger.String("output", out.Name),
		logger.String("layout", layout.String()),
		logger.Bool("dynamic_batch", b.dynamic),
		logger.Int("feature_dim", b.dim),
		logger.String("device", device),
		logger.Duration("elapsed", time.Since(start)))

	return b, nil
}

// openONNXSession creates a session with fresh options. The returned device is
// "cuda" only when the CUDA provider was appended.
func openONNXSession(opts ONNXOptions, input, output string, cuda bool, log logger.Logger) (*ort.DynamicAdvancedSession, string, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, "cpu", err
	}
	defer options.Destroy()

	if opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
			log.Warn("cannot set onnxruntime thread count", logger.Error(err))
		}
	}

	device := "cpu"
	if cuda {
		if err := appendCUDA(options); err != nil {
			log.Warn("CUDA execution provider unavailable, using CPU", logger.Error(err))
		} else {
			device = "cuda"
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath, []string{input}, []string{output}, options)
	return session, device, err
}

// openWithCPUFallback opens a session, retrying once without CUDA when a
// session with the CUDA provider appended fails to start (missing cuDNN, for example).
func openWithCPUFallback[S any](open func(cuda bool) (S, string, error), wantCUDA bool, log logger.Logger) (S, string, error) {
	session, device, err := open(wantCUDA)
	if err == nil || device != "cuda" {
		return session, device, err
	}
	log.Warn("CUDA session failed to start, retrying on CPU", logger.Error(err))
	return open(false)
}

func appendCUDA(options *ort.SessionOptions) error {
	cudaOptions, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cudaOptions.Destroy()
	return options.AppendExecutionProviderCUDA(cudaOptions)
}

func pickInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	if name == "" {
		return infos[0], true
	}
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return ort.InputOutputInfo{}, false
}

// outputWidth multiplies the non-batch output dimensions. Every dimension
// after the first must be static.
func outputWidth(dims ort.Shape) (int, error) {
	if len(dims) < 2 {
		return 0, errors.Newf("output shape %v has no feature axis", dims).Build()
	}
	width := 1
	for _, d := range dims[1:] {
		if d <= 0 {
			return 0, errors.Newf("output shape %v has a dynamic feature axis", dims).Build()
		}
		width *= int(d)
	}
	return width, nil
}

func (b *ONNXBackbone) Name() string    { return "onnx" }
func (b *ONNXBackbone) FeatureDim() int { return b.dim }

// Device reports where the session runs, cpu or cuda.
func (b *ONNXBackbone) Device() string { return b.device }

// Embed runs the batch in one call when the model input has a dynamic batch
// axis, otherwise one image at a time.
func (b *ONNXBackbone) Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	shape := batch.Images.Shape()
	c, h, w := int64(shape[1]), int64(shape[2]), int64(shape[3])
	per := int(c * h * w)

	if b.dynamic {
		data := make([]float32, per*batch.Size())
		for i := range batch.Size() {
			sampleImage(data[i*per:(i+1)*per], batch, i, b.layout)
		}
		return b.run(data, b.inputShape(int64(batch.Size()), c, h, w), batch.Size())
	}

	rows := make([][]float32, 0, batch.Size())
	data := make([]float32, per)
	for i := range batch.Size() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sampleImage(data, batch, i, b.layout)
		out, err := b.run(data, b.inputShape(1, c, h, w), 1)
		if err != nil {
			return nil, err
		}
		row := make([]float32, b.dim)
		for j := range row {
			row[j] = float32(out.At(0, j))
		}
		rows = append(rows, row)
	}
	return rowsToDense(rows), nil
}

func (b *ONNXBackbone) inputShape(n, c, h, w int64) ort.Shape {
	if b.layout == layoutNHWC {
		return ort.NewShape(n, h, w, c)
	}
	return ort.NewShape(n, c, h, w)
}

func (b *ONNXBackbone) run(data []float32, shape ort.Shape, n int) (*mat.Dense, error) {
	input, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, errors.New(err).Component("model").Category(errors.CategoryInference).ModelContext("onnx", b.path).Build()
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := b.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext("onnx", b.path).
			Context("batch_size", n).
			Context("device", b.device).
			Build()
	}
	defer outputs[0].Destroy()

	result, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Newf("model output is not a float32 tensor").
			Component("model").
			Category(errors.CategoryInference).
			ModelContext("onnx", b.path).
			Build()
	}
	values := result.GetData()
	if len(values) != n*b.dim {
		return nil, errors.Newf("model returned %d values, want %d", len(values), n*b.dim).
			Component("model").
			Category(errors.CategoryInference).
			ModelContext("onnx", b.path).
			Build()
	}

	dense := mat.NewDense(n, b.dim, nil)
	for i := range n {
		for j := range b.dim {
			dense.Set(i, j, float64(values[i*b.dim+j]))
		}
	}
	return dense, nil
}

// Close destroys the session. The shared environment stays up for the process.
func (b *ONNXBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	err := b.session.Destroy()
	b.session = nil
	return err
}
