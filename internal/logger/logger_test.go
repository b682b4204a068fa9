package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{"debug shows everything", LogLevelDebug, true, true},
		{"info hides debug", LogLevelInfo, false, true},
		{"error hides info", LogLevelError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := NewWriterLogger(&buf, tt.level).Module("trainer")

			log.Debug("debug message")
			log.Info("info message")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "debug message"))
			assert.Equal(t, tt.wantInfo, strings.Contains(buf.String(), "info message"))
		})
	}
}

func TestTextHandlerFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogLevelInfo).Module("trainer").Module("epoch")

	log.With(Int("epoch", 2)).Info("epoch finished",
		Float64("val_auc", 0.91234),
		String("note", "two words"),
		Duration("elapsed", 1500*time.Millisecond))

	line := buf.String()
	assert.Contains(t, line, "INFO  [trainer.epoch] epoch finished")
	assert.Contains(t, line, "epoch=2")
	assert.Contains(t, line, "val_auc=0.912")
	assert.Contains(t, line, `note="two words"`)
	assert.Contains(t, line, "elapsed=1.5s")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogLevelInfo).Module("pipeline")

	ctx := WithTraceID(context.Background(), "run-123")
	log.WithContext(ctx).Info("started")
	log.WithContext(context.Background()).Info("no trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=run-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path},
	})
	require.NoError(t, err)

	cl.Module("features").Info("extracted", Int("rows", 10))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "extracted", record["msg"])
	assert.Equal(t, "features", record["module"])
	assert.InDelta(t, 10, record["rows"], 0)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	assert.Error(t, err)
}

func TestGormAdapterTrace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		slow time.Duration
		want string
	}{
		{"statement", nil, 0, "TRACE [datastore] sql query"},
		{"failure", fmt.Errorf("locked"), 0, "WARN  [datastore] query error"},
		{"slow", nil, time.Nanosecond, "WARN  [datastore] slow query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			adapter := NewGormLoggerAdapter(NewWriterLogger(&buf, LogLevelTrace).Module("datastore"), tt.slow)
			adapter.Trace(context.Background(), time.Now().Add(-time.Millisecond), func() (string, int64) {
				return "SELECT 1", 1
			}, tt.err)

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), `sql="SELECT 1"`)
		})
	}
}
