// Package observability collects run metrics and exports them in the
// Prometheus text format.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/observability/metrics"
)

// Metrics holds all the metric collectors for a run.
type Metrics struct {
	registry *prometheus.Registry
	Training *metrics.TrainingMetrics
	Features *metrics.FeatureMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	trainingMetrics, err := metrics.NewTrainingMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create training metrics: %w", err)
	}

	featureMetrics, err := metrics.NewFeatureMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Training: trainingMetrics,
		Features: featureMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values to path in the node exporter
// textfile format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	GetLogger().Info("metrics written", logger.String("path", path))
	return nil
}

// Gauges returns the current value of every unlabelled gauge, keyed by metric name.
func (m *Metrics) Gauges() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_GAUGE {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if len(metric.GetLabel()) == 0 {
				out[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
