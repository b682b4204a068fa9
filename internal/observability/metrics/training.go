package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TrainingMetrics contains the Prometheus metrics of a training run.
type TrainingMetrics struct {
	OperationTotal    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec

	EpochGauge     prometheus.Gauge
	TrainLossGauge prometheus.Gauge
	ValLossGauge   prometheus.Gauge
	ValAUCGauge    prometheus.Gauge
	BestAUCGauge   prometheus.Gauge
	ImprovedTotal  prometheus.Counter
}

// NewTrainingMetrics creates the training metrics and registers them with registry.
func NewTrainingMetrics(registry *prometheus.Registry) (*TrainingMetrics, error) {
	m := &TrainingMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register training metrics: %w", err)
	}
	return m, nil
}

func (m *TrainingMetrics) initMetrics() {
	m.OperationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakevoice_operations_total",
			Help: "Total number of pipeline operations partitioned by operation and status.",
		},
		[]string{"operation", "status"},
	)
	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fakevoice_operation_duration_seconds",
			Help:    "Time taken by pipeline operations.",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount14),
		},
		[]string{"operation"},
	)
	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakevoice_errors_total",
			Help: "Total number of pipeline errors partitioned by operation and error category.",
		},
		[]string{"operation", "error_type"},
	)

	m.EpochGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fakevoice_train_epoch",
		Help: "Last completed training epoch, counting from 1.",
	})
	m.TrainLossGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fakevoice_train_loss",
		Help: "Mean training loss of the last epoch.",
	})
	m.ValLossGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fakevoice_validation_loss",
		Help: "Mean validation loss of the last epoch.",
	})
	m.ValAUCGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fakevoice_validation_auc",
		Help: "Validation AUC of the last epoch.",
	})
	m.BestAUCGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fakevoice_validation_best_auc",
		Help: "Highest validation AUC seen so far.",
	})
	m.ImprovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fakevoice_best_model_updates_total",
		Help: "Number of epochs that replaced the best model.",
	})
}

// RecordOperation implements Recorder.
func (m *TrainingMetrics) RecordOperation(operation, status string) {
	m.OperationTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *TrainingMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *TrainingMetrics) RecordError(operation, errorType string) {
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordEpoch publishes the summary of a finished epoch.
func (m *TrainingMetrics) RecordEpoch(epoch int, trainLoss, valLoss, valAUC float64, improved bool) {
	m.EpochGauge.Set(float64(epoch))
	m.TrainLossGauge.Set(trainLoss)
	m.ValLossGauge.Set(valLoss)
	m.ValAUCGauge.Set(valAUC)
	if improved {
		m.BestAUCGauge.Set(valAUC)
		m.ImprovedTotal.Inc()
	}
}

// Describe implements the prometheus.Collector interface.
func (m *TrainingMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	ch <- m.EpochGauge.Desc()
	ch <- m.TrainLossGauge.Desc()
	ch <- m.ValLossGauge.Desc()
	ch <- m.ValAUCGauge.Desc()
	ch <- m.BestAUCGauge.Desc()
	ch <- m.ImprovedTotal.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *TrainingMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	ch <- m.EpochGauge
	ch <- m.TrainLossGauge
	ch <- m.ValLossGauge
	ch <- m.ValAUCGauge
	ch <- m.BestAUCGauge
	ch <- m.ImprovedTotal
}
