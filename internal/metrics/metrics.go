package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_api_calls_total",
			Help: "Total weather API calls",
		},
		[]string{"endpoint", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteopl_api_latency_seconds",
			Help:    "Weather API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_records_normalized_total",
			Help: "Total weather records classified, by granularity",
		},
		[]string{"granularity"},
	)

	RecordsDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_records_degraded_total",
			Help: "Records that could not be decoded and were replaced by zero values",
		},
		[]string{"granularity"},
	)

	StaleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_stale_responses_total",
			Help: "Page responses discarded because a newer request superseded them",
		},
		[]string{"page"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_exports_total",
			Help: "Total exports produced",
		},
		[]string{"page", "format"},
	)

	ArchiveRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteopl_archive_runs_total",
			Help: "Poland-wide snapshot archive runs",
		},
		[]string{"status"},
	)
)
