package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the resolution path.
type Metrics struct {
	SourceHits        *prometheus.CounterVec
	SourceUnavailable *prometheus.CounterVec
	FallbackSearches  prometheus.Counter
	FallbackHits      prometheus.Counter
	Misses            prometheus.Counter
	ResolveDuration   prometheus.Histogram
}

// New creates and registers all resolution metrics.
func New() *Metrics {
	return &Metrics{
		SourceHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resulthub_source_hits_total",
			Help: "Total number of student records resolved, by source",
		}, []string{"source"}),
		SourceUnavailable: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resulthub_source_unavailable_total",
			Help: "Total number of sources skipped as unavailable during resolution",
		}, []string{"source"}),
		FallbackSearches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resulthub_fallback_searches_total",
			Help: "Total number of resolutions that reached the web API fallback",
		}),
		FallbackHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resulthub_fallback_hits_total",
			Help: "Total number of records resolved via the web API fallback",
		}),
		Misses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resulthub_resolution_misses_total",
			Help: "Total number of lookups that no source or web API could answer",
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "resulthub_resolve_duration_seconds",
			Help:    "Duration of full federated resolutions",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordSourceHit(source string) {
	m.SourceHits.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordSourceUnavailable(source string) {
	m.SourceUnavailable.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordFallbackSearch() {
	m.FallbackSearches.Inc()
}

func (m *Metrics) RecordFallbackHit() {
	m.FallbackHits.Inc()
}

func (m *Metrics) RecordMiss() {
	m.Misses.Inc()
}

func (m *Metrics) ObserveResolveDuration(seconds float64) {
	m.ResolveDuration.Observe(seconds)
}
