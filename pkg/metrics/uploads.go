// Package metrics holds the Prometheus instruments for the upload
// pipeline. All metric types are nil-safe so tests and wiring that do not
// care about metrics can pass a nil pointer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics tracks confirmation outcomes and batch sizes.
type UploadMetrics struct {
	confirmations *prometheus.CounterVec
	batchSize     prometheus.Histogram
	batchDuration prometheus.Histogram
}

// NewUploadMetrics registers the upload metrics on the given registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	m := &UploadMetrics{
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_confirmations_total",
			Help: "Photo upload confirmations by consistency mode and outcome.",
		}, []string{"mode", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photo_batch_confirm_size",
			Help:    "Number of photos per batch confirmation request.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photo_batch_confirm_duration_seconds",
			Help:    "Wall time of batch confirmation requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.confirmations, m.batchSize, m.batchDuration)
	return m
}

// ObserveConfirmation records one confirmation attempt.
func (m *UploadMetrics) ObserveConfirmation(mode, outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(mode, outcome).Inc()
}

// ObserveBatch records the size and duration of one batch confirmation.
func (m *UploadMetrics) ObserveBatch(size int, seconds float64) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchDuration.Observe(seconds)
}
