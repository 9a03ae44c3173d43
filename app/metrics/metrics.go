// Package metrics provides Prometheus metrics for regwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// SourceReadsTotal counts reads per source URL outcome.
	SourceReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "source_reads_total",
			Help:      "Total number of source reads",
		},
		[]string{"source", "status"},
	)

	SourceReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regwatch",
			Name:      "source_read_duration_seconds",
			Help:      "Duration of source reads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// NewItemsTotal counts items detected as new, per source.
	NewItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "new_items_total",
			Help:      "Total number of new items detected",
		},
		[]string{"source"},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "batches_total",
			Help:      "Total number of aggregation batches",
		},
		[]string{"mode", "status"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regwatch",
			Name:      "batch_duration_seconds",
			Help:      "Duration of aggregation batches in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	SummarizerChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "summarizer_chunks_total",
			Help:      "Total number of document chunks sent to the language model",
		},
		[]string{"status"},
	)
)

// RecordRead records a single source URL read.
func RecordRead(source, status string, duration float64) {
	SourceReadsTotal.WithLabelValues(source, status).Inc()
	SourceReadDuration.WithLabelValues(source).Observe(duration)
}

// RecordBatch records a finished batch.
func RecordBatch(mode, status string, duration float64) {
	BatchesTotal.WithLabelValues(mode, status).Inc()
	BatchDuration.WithLabelValues(mode).Observe(duration)
}

func RecordNewItems(source string, count int) {
	if count > 0 {
		NewItemsTotal.WithLabelValues(source).Add(float64(count))
	}
}

func RecordChunk(status string) {
	SummarizerChunksTotal.WithLabelValues(status).Inc()
}
