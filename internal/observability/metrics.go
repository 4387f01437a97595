// Package observability provides Prometheus metrics for monitoring the service.
// Error telemetry is handled by the errors package.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/sunrise-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	HTTP      *metrics.HTTPMetrics
	RateLimit *metrics.RateLimitMetrics
	SunCalc   *metrics.SunCalcMetrics
	Geocoder  *metrics.GeocoderMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry,
// initializing all metric collectors together with the Go runtime and
// process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	rateLimitMetrics, err := metrics.NewRateLimitMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create RateLimit metrics: %w", err)
	}

	sunCalcMetrics, err := metrics.NewSunCalcMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create SunCalc metrics: %w", err)
	}

	geocoderMetrics, err := metrics.NewGeocoderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Geocoder metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		HTTP:      httpMetrics,
		RateLimit: rateLimitMetrics,
		SunCalc:   sunCalcMetrics,
		Geocoder:  geocoderMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
