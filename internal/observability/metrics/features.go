package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeatureMetrics tracks audio decoding during feature extraction.
type FeatureMetrics struct {
	FilesDecoded   prometheus.Counter
	DecodeDuration prometheus.Histogram
}

// NewFeatureMetrics creates the feature metrics and registers them with registry.
func NewFeatureMetrics(registry *prometheus.Registry) (*FeatureMetrics, error) {
	m := &FeatureMetrics{
		FilesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fakevoice_files_decoded_total",
			Help: "Total number of audio files decoded and transformed.",
		}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fakevoice_file_decode_duration_seconds",
			Help:    "Time taken to decode, resample and transform one audio file.",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount14),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register feature metrics: %w", err)
	}
	return m, nil
}

// FileDecoded counts one processed file.
func (m *FeatureMetrics) FileDecoded(elapsed time.Duration) {
	m.FilesDecoded.Inc()
	m.DecodeDuration.Observe(elapsed.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *FeatureMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.FilesDecoded.Desc()
	ch <- m.DecodeDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *FeatureMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.FilesDecoded
	ch <- m.DecodeDuration
}
