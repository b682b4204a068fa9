package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEpoch(t *testing.T) {
	t.Parallel()

	m, err := NewTrainingMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordEpoch(1, 0.7, 0.6, 0.8, true)
	m.RecordEpoch(2, 0.5, 0.65, 0.7, false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.EpochGauge), 0)
	assert.InDelta(t, 0.7, testutil.ToFloat64(m.ValAUCGauge), 1e-12)
	assert.InDelta(t, 0.8, testutil.ToFloat64(m.BestAUCGauge), 1e-12)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ImprovedTotal), 0)
}

func TestTrainingMetricsRecorder(t *testing.T) {
	t.Parallel()

	m, err := NewTrainingMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpTrainBatch, StatusSuccess)
	r.RecordOperation(OpTrainBatch, StatusSuccess)
	r.RecordOperation(OpPredict, StatusError)
	r.RecordError(OpPredict, "model-inference")

	assert.InDelta(t, 2, testutil.ToFloat64(m.OperationTotal.WithLabelValues(OpTrainBatch, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationTotal.WithLabelValues(OpPredict, StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(OpPredict, "model-inference")), 0)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewTrainingMetrics(registry)
	require.NoError(t, err)
	_, err = NewTrainingMetrics(registry)
	assert.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NoOpRecorder{}
	assert.NotPanics(t, func() {
		r.RecordOperation(OpDecode, StatusSuccess)
		r.RecordDuration(OpDecode, 1)
		r.RecordError(OpDecode, "file-io")
	})
}
