package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// RateLimitMetrics contains Prometheus metrics for the per-client request limiter
type RateLimitMetrics struct {
	registry *prometheus.Registry

	decisionsTotal *prometheus.CounterVec
	activeEntries  prometheus.Gauge
	evictedTotal   prometheus.Counter
}

// NewRateLimitMetrics creates and registers new rate limiter metrics
func NewRateLimitMetrics(registry *prometheus.Registry) (*RateLimitMetrics, error) {
	m := &RateLimitMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RateLimitMetrics) initMetrics() {
	m.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Total number of rate limit admission decisions",
		},
		[]string{"decision"}, // decision: allowed, denied
	)

	m.activeEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_active_entries",
		Help: "Number of client identities currently tracked by the rate limiter",
	})

	m.evictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_evicted_entries_total",
		Help: "Total number of stale rate limit entries removed by cleanup",
	})
}

// Describe implements the Collector interface
func (m *RateLimitMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.decisionsTotal.Describe(ch)
	m.activeEntries.Describe(ch)
	m.evictedTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *RateLimitMetrics) Collect(ch chan<- prometheus.Metric) {
	m.decisionsTotal.Collect(ch)
	m.activeEntries.Collect(ch)
	m.evictedTotal.Collect(ch)
}

// RecordDecision records an admission decision
func (m *RateLimitMetrics) RecordDecision(allowed bool) {
	decision := DecisionDenied
	if allowed {
		decision = DecisionAllowed
	}
	m.decisionsTotal.WithLabelValues(decision).Inc()
}

// SetActiveEntries updates the tracked identity gauge
func (m *RateLimitMetrics) SetActiveEntries(n int) {
	m.activeEntries.Set(float64(n))
}

// RecordCleanup records the number of entries removed by one cleanup pass
func (m *RateLimitMetrics) RecordCleanup(removed int) {
	if removed > 0 {
		m.evictedTotal.Add(float64(removed))
	}
}

// ActiveEntries returns the current value of the tracked identity gauge
func (m *RateLimitMetrics) ActiveEntries() float64 {
	metric := &dto.Metric{}
	if err := m.activeEntries.Write(metric); err != nil {
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
