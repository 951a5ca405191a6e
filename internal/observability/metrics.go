package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query outcome labels.
const (
	StatusOK         = "ok"
	StatusConnection = "connection_error"
	StatusQuery      = "query_error"
	StatusCanceled   = "canceled"
	StatusError      = "error"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	QueriesTotal     *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheShared      *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pypistats_store_queries_total",
				Help: "Total number of queries issued to the download store",
			},
			[]string{"operation", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pypistats_store_query_duration_seconds",
				Help:    "Download store query duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pypistats_cache_hits_total",
				Help: "Total number of memoized results served from cache",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pypistats_cache_misses_total",
				Help: "Total number of memoized results that had to be recomputed",
			},
			[]string{"cache"},
		),
		CacheShared: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pypistats_cache_shared_total",
				Help: "Total number of recomputes shared with a concurrent identical request",
			},
			[]string{"cache"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pypistats_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheShared,
		m.BreakerState,
	)

	return m
}

// ObserveQuery records one store query.
func (m *Metrics) ObserveQuery(operation string, started time.Time, status string) {
	m.QueriesTotal.WithLabelValues(operation, status).Inc()
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordCacheShared(cache string) {
	m.CacheShared.WithLabelValues(cache).Inc()
}

func (m *Metrics) SetBreakerState(breaker string, state float64) {
	m.BreakerState.WithLabelValues(breaker).Set(state)
}
