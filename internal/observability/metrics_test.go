package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Training.RecordOperation(metrics.OpTrainBatch, metrics.StatusSuccess)
	m.Training.RecordDuration(metrics.OpValidate, 0.25)
	m.Training.RecordEpoch(1, 0.69, 0.71, 0.75, true)
	m.Features.FileDecoded(15 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "fakevoice.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `fakevoice_operations_total{operation="train_batch",status="success"} 1`)
	assert.Contains(t, text, "fakevoice_validation_auc 0.75")
	assert.Contains(t, text, "fakevoice_validation_best_auc 0.75")
	assert.Contains(t, text, "fakevoice_files_decoded_total 1")
	assert.Contains(t, text, "fakevoice_operation_duration_seconds_count{operation=\"validate\"} 1")
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NoError(t, m.WriteTextfile(""))
}

func TestMetricsUseSeparateRegistries(t *testing.T) {
	t.Parallel()

	// two runs in one process must not collide on registration
	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestGauges(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Training.RecordEpoch(3, 0.4, 0.5, 0.8, false)

	gauges, err := m.Gauges()
	require.NoError(t, err)
	assert.InDelta(t, 3, gauges["fakevoice_train_epoch"], 0)
	assert.InDelta(t, 0.8, gauges["fakevoice_validation_auc"], 1e-12)
	assert.NotContains(t, gauges, "fakevoice_operations_total")
}
