// Package metrics provides suncalc service metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SunCalcMetrics contains Prometheus metrics for sun time calculations
type SunCalcMetrics struct {
	registry *prometheus.Registry

	sunCalcOperationsTotal *prometheus.CounterVec
	sunCalcDurationSeconds prometheus.Histogram
	astralErrorsTotal      *prometheus.CounterVec
}

// NewSunCalcMetrics creates and registers new suncalc metrics
func NewSunCalcMetrics(registry *prometheus.Registry) (*SunCalcMetrics, error) {
	m := &SunCalcMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SunCalcMetrics) initMetrics() {
	m.sunCalcOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suncalc_operations_total",
			Help: "Total number of sun time calculations",
		},
		[]string{"status"}, // status: success, error
	)

	m.sunCalcDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suncalc_duration_seconds",
			Help:    "Time taken for sun time calculations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12), // 0.1ms to ~200ms
		},
	)

	m.astralErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suncalc_astral_errors_total",
			Help: "Total number of astral library calculation errors",
		},
		[]string{"event"}, // event: sunrise, sunset
	)
}

// Describe implements the Collector interface
func (m *SunCalcMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.sunCalcOperationsTotal.Describe(ch)
	m.sunCalcDurationSeconds.Describe(ch)
	m.astralErrorsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *SunCalcMetrics) Collect(ch chan<- prometheus.Metric) {
	m.sunCalcOperationsTotal.Collect(ch)
	m.sunCalcDurationSeconds.Collect(ch)
	m.astralErrorsTotal.Collect(ch)
}

// RecordCalculation records a finished calculation and its duration
func (m *SunCalcMetrics) RecordCalculation(status string, duration time.Duration) {
	m.sunCalcOperationsTotal.WithLabelValues(status).Inc()
	m.sunCalcDurationSeconds.Observe(duration.Seconds())
}

// RecordAstralError records a sun event the astral library could not produce
func (m *SunCalcMetrics) RecordAstralError(event string) {
	m.astralErrorsTotal.WithLabelValues(event).Inc()
}
