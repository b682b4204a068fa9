package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every error built while it is installed and enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	reporterMu sync.RWMutex
	reporter   TelemetryReporter
)

// SetTelemetryReporter installs r as the global reporter. nil disables reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
	reporting.Store(r != nil && r.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

// InitSentry starts the Sentry client and installs it as the reporter.
// An empty DSN leaves reporting off. systemID is sent as the server name.
func InitSentry(dsn, release, systemID string) error {
	if dsn == "" {
		SetTelemetryReporter(nil)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		ServerName:       systemID,
		AttachStacktrace: true,
	})
	if err != nil {
		return New(fmt.Errorf("sentry init failed: %w", err)).
			Component("telemetry").
			Category(CategoryConfiguration).
			Build()
	}

	SetTelemetryReporter(sentryReporter{})
	return nil
}

// FlushTelemetry blocks until queued events are sent or timeout passes.
func FlushTelemetry(timeout time.Duration) {
	if reporting.Load() {
		sentry.Flush(timeout)
	}
}

type sentryReporter struct{}

func (sentryReporter) IsEnabled() bool { return true }

// ReportError sends ee once. Messages and string context values are scrubbed first.
func (sentryReporter) ReportError(ee *EnhancedError) {
	if ee.markReported() {
		return
	}

	title := errorTitle(ee)
	component := ee.GetComponent()
	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"error_title": title,
			"component":   component,
			"category":    string(ee.Category),
			"error_type":  fmt.Sprintf("%T", ee.Err),
		})
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})
}

var categoryTitles = map[ErrorCategory]string{
	CategoryValidation:    "Validation Error",
	CategoryFileIO:        "File I/O Error",
	CategoryManifest:      "Manifest Error",
	CategoryAudioDecode:   "Audio Decode Error",
	CategoryFeature:       "Feature Extraction Error",
	CategoryModelInit:     "Model Initialization Error",
	CategoryModelLoad:     "Model Loading Error",
	CategoryInference:     "Inference Error",
	CategoryTraining:      "Training Error",
	CategorySubmission:    "Submission Error",
	CategoryDatabase:      "Database Error",
	CategoryConfiguration: "Configuration Error",
}

// errorTitle joins component, category and the "operation" context value,
// e.g. "Trainer Training Error Validation Pass".
func errorTitle(ee *EnhancedError) string {
	var parts []string

	if component := ee.GetComponent(); component != ComponentUnknown {
		parts = append(parts, capitalize(component))
	}
	if title, ok := categoryTitles[ee.Category]; ok {
		parts = append(parts, title)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.GetContext()["operation"].(string); ok {
		for _, word := range strings.FieldsFunc(op, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
			parts = append(parts, capitalize(word))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryFileIO, CategoryAudioDecode:
		return sentry.LevelWarning
	case CategoryCancellation:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	homeDirRegex  = regexp.MustCompile(`(/home/|/Users/)[^/\s]+`)
)

// scrubMessageForPrivacy drops URL query strings and user names in home paths.
func scrubMessageForPrivacy(message string) string {
	message = urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	return homeDirRegex.ReplaceAllString(message, "${1}[USER]")
}
