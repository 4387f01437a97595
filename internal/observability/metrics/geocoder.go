package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GeocoderMetrics contains Prometheus metrics for outbound geocoding requests
type GeocoderMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewGeocoderMetrics creates and registers new geocoder metrics
func NewGeocoderMetrics(registry *prometheus.Registry) (*GeocoderMetrics, error) {
	m := &GeocoderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GeocoderMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocoder_requests_total",
			Help: "Total number of geocoding service requests",
		},
		[]string{"operation", "status"}, // operation: search, reverse; status: success, error, throttled
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocoder_request_duration_seconds",
			Help:    "Time taken for geocoding service requests",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10), // 10ms to ~5s
		},
		[]string{"operation"},
	)
}

// Describe implements the Collector interface
func (m *GeocoderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *GeocoderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
}

// RecordRequest records one geocoding request. Throttled requests never
// reached the service and are not observed in the latency histogram.
func (m *GeocoderMetrics) RecordRequest(operation, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	if status != StatusThrottled {
		m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}
