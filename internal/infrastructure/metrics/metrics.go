package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Duet server metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Pipeline outcome counter
	PipelineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "pipeline_outcomes_total",
			Help:      "Media pipeline runs by tagged outcome",
		},
		[]string{"outcome"},
	)

	// Pipeline duration histogram
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "pipeline_duration_seconds",
			Help:      "Media pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	// Resumable upload chunk counter
	UploadChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "upload_chunks_total",
			Help:      "Total resumable upload chunks accepted",
		},
	)

	// Resumable upload bytes counter
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "upload_bytes_total",
			Help:      "Total bytes received over resumable uploads",
		},
	)

	// Composite builds by status
	CompositesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "composites_total",
			Help:      "Composite image builds by status",
		},
		[]string{"status"},
	)

	// Moments swept to expired
	MomentsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "server",
			Name:      "moments_expired_total",
			Help:      "Moments marked expired by the sweeper",
		},
	)
)
