// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_api_upstream_request_duration_seconds",
			Help:    "Total time taken for upstream flow runs in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
		},
		[]string{"mode"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_api_cache_hits_total",
			Help: "Total number of insight cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_api_cache_misses_total",
			Help: "Total number of insight cache misses",
		},
		[]string{"backend"},
	)

	StreamEventsRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyzer_api_stream_events_relayed_total",
			Help: "Total upstream stream events relayed to clients",
		},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyzer_api_active_streams",
			Help: "Currently open upstream event streams",
		},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
