package tagging

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the tagging facade.
type Metrics struct {
	CallsTotal *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheSize        prometheus.Gauge

	ConflictsTotal prometheus.Counter
	DegradedTotal  prometheus.Counter

	TagDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the facade metrics.
//
// sync.Once guards registration so multiple facade instances in one
// process (tests aside, which should inject their own registry-free
// Usage) never trip duplicate-collector panics. All metrics use the
// "tagging_" prefix.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tagging_calls_total",
					Help: "Total tagging calls",
				},
				[]string{"mode", "kind"},
			),
			CacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tagging_cache_hits_total",
					Help: "Total memoization cache hits",
				},
			),
			CacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tagging_cache_misses_total",
					Help: "Total memoization cache misses",
				},
			),
			CacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "tagging_cache_size",
					Help: "Current number of memoized results",
				},
			),
			ConflictsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tagging_merge_conflicts_total",
					Help: "Total merge conflicts resolved in both mode",
				},
			),
			DegradedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tagging_degraded_calls_total",
					Help: "Total calls that fell back after a tagger failure",
				},
			),
			TagDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tagging_call_duration_seconds",
					Help:    "Duration of tagging calls",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
				},
				[]string{"mode"},
			),
		}
	})
	return globalMetrics
}
