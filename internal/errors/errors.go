// Package errors wraps errors with a category, the component that raised them
// and a small context map, and forwards them to Sentry when reporting is on.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for reporting and for IsCategory checks.
type ErrorCategory string

// CategorizedError lets foreign error types name their own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryManifest      ErrorCategory = "manifest"
	CategoryAudioDecode   ErrorCategory = "audio-decode"
	CategoryFeature       ErrorCategory = "feature-extraction"
	CategoryModelInit     ErrorCategory = "model-initialization"
	CategoryModelLoad     ErrorCategory = "model-loading"
	CategoryInference     ErrorCategory = "model-inference"
	CategoryTraining      ErrorCategory = "training"
	CategorySubmission    ErrorCategory = "submission"
	CategoryDatabase      ErrorCategory = "database"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryGeneric       ErrorCategory = "generic"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when no registered package is found on the stack.
const ComponentUnknown = "unknown"

const selfPackage = "detect-fakevoice/internal/errors"

// reporting is true while an enabled telemetry reporter is installed.
var reporting atomic.Bool

// componentPackages maps package path fragments to component names, checked in order.
var componentPackages = []struct{ pattern, name string }{
	{"internal/conf", "configuration"},
	{"internal/manifest", "manifest"},
	{"internal/myaudio", "myaudio"},
	{"internal/features", "features"},
	{"internal/dataset", "dataset"},
	{"internal/model", "model"},
	{"internal/trainer", "trainer"},
	{"internal/submission", "submission"},
	{"internal/datastore", "datastore"},
	{"internal/diskspace", "diskspace"},
	{"internal/pipeline", "pipeline"},
}

// EnhancedError is an error annotated with category, component and context.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	mu        sync.Mutex
	component string
	reported  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError by category, anything else through the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component that raised the error.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" {
		ee.component = ComponentUnknown
	}
	return ee.component
}

// GetPriority returns the explicit priority, or "" when none was set.
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// markReported flips the reported flag and returns its previous value.
func (ee *EnhancedError) markReported() bool {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	was := ee.reported
	ee.reported = true
	return was
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the raising component. When unset it is looked up on the call
// stack, but only while telemetry is active.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority overrides the reported priority. Unrecognised values become medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case "":
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// ModelContext records the backbone and the extension of its model file.
func (eb *ErrorBuilder) ModelContext(backbone, modelPath string) *ErrorBuilder {
	if backbone != "" {
		eb.Context("backbone", backbone)
	}
	if modelPath != "" {
		eb.Context("model_extension", fileExtension(modelPath))
	}
	return eb
}

// FileContext records coarse facts about a file. The path itself is not kept.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		kind := "relative-path"
		if strings.HasPrefix(filePath, "/") || strings.Contains(filePath, ":\\") {
			kind = "absolute-path"
		}
		eb.Context("file_type", kind)
		eb.Context("file_extension", fileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", sizeClass(fileSize))
	}
	return eb
}

// Timing records the operation name and how long it ran before failing.
func (eb *ErrorBuilder) Timing(operation string, elapsed time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", elapsed.Milliseconds())
}

// Build returns the error and hands it to the telemetry reporter if one is active.
func (eb *ErrorBuilder) Build() *EnhancedError {
	active := reporting.Load()

	component := eb.component
	if component == "" && active {
		component = stackComponent()
	}
	if component == "" {
		component = ComponentUnknown
	}

	category := eb.category
	if category == "" {
		category = detectCategory(eb.err, component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}
	if active {
		reportToTelemetry(ee)
	}
	return ee
}

// stackComponent walks the caller stack for the first registered package.
func stackComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, selfPackage) {
			for _, entry := range componentPackages {
				if strings.Contains(frame.Function, entry.pattern) {
					return entry.name
				}
			}
		}
		if !more {
			return ""
		}
	}
}

var componentCategories = map[string]ErrorCategory{
	"myaudio":       CategoryAudioDecode,
	"features":      CategoryFeature,
	"manifest":      CategoryManifest,
	"trainer":       CategoryTraining,
	"submission":    CategorySubmission,
	"datastore":     CategoryDatabase,
	"configuration": CategoryConfiguration,
}

// detectCategory derives a category from the error chain, then the message,
// then the component.
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context canceled"):
		return CategoryCancellation
	case strings.Contains(msg, "model"):
		return CategoryModelLoad
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "permission denied"):
		return CategoryFileIO
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return CategoryValidation
	}

	if category, ok := componentCategories[component]; ok {
		return category
	}
	return CategoryGeneric
}

func fileExtension(path string) string {
	dot := strings.LastIndex(path, ".")
	if dot <= 0 || dot == len(path)-1 {
		return "none"
	}
	return strings.ToLower(path[dot+1:])
}

func sizeClass(size int64) string {
	const kib, mib = 1 << 10, 1 << 20
	switch {
	case size < kib:
		return "tiny"
	case size < mib:
		return "small"
	case size < 10*mib:
		return "medium"
	case size < 100*mib:
		return "large"
	default:
		return "very-large"
	}
}

// Is, As and Join forward to the standard library so callers need one import.

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether the outermost EnhancedError in err has the category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return stderrors.As(err, &ee) && ee.Category == category
}

func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
