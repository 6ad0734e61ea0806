package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusRetried = "retried"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// BatchesTotal counts processed batches
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbf_batches_total",
			Help: "Total number of event batches processed",
		},
		[]string{"dataset", "status"},
	)

	// BatchDuration measures batch processing time in seconds
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vbf_batch_duration_seconds",
			Help:    "Batch processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"dataset", "status"},
	)

	// EventsTotal counts events read from input files
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbf_events_total",
			Help: "Total number of events read",
		},
		[]string{"dataset"},
	)

	// FillsTotal counts histogram fills per shift
	FillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbf_fills_total",
			Help: "Total number of histogram fill calls",
		},
		[]string{"dataset", "shift"},
	)

	// FilesRunning tracks files currently being processed
	FilesRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vbf_files_running",
			Help: "Number of input files currently being processed",
		},
		[]string{"dataset"},
	)
)

// RecordBatch records the outcome of one batch
func RecordBatch(dataset, status string, events int, duration float64) {
	BatchesTotal.WithLabelValues(dataset, status).Inc()
	BatchDuration.WithLabelValues(dataset, status).Observe(duration)
	if status == StatusSuccess {
		EventsTotal.WithLabelValues(dataset).Add(float64(events))
	}
}

// RecordFill records one histogram fill
func RecordFill(dataset, shift string) {
	FillsTotal.WithLabelValues(dataset, shift).Inc()
}

// RecordFileStart records the start of a file
func RecordFileStart(dataset string) {
	FilesRunning.WithLabelValues(dataset).Inc()
}

// RecordFileDone records the end of a file
func RecordFileDone(dataset string) {
	FilesRunning.WithLabelValues(dataset).Dec()
}
