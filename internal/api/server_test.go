package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sunrise-go/internal/conf"
	"github.com/tphakala/sunrise-go/internal/logger"
	"github.com/tphakala/sunrise-go/internal/observability"
	"github.com/tphakala/sunrise-go/internal/ratelimit"
)

func TestNewRequiresGeocoder(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig(), WithLogger(logger.NewDiscardLogger()))
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Port = 70000
	_, err = New(cfg, WithGeocoder(&mockGeocoder{}))
	require.Error(t, err)
}

func TestIndexAndStatic(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := serve(s, getRequest("/"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Sunrise &amp; Sunset Times")
	assert.Contains(t, rec.Body.String(), "/static/js/script.js")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self' https://unpkg.com")

	rec = serve(s, getRequest("/static/js/script.js"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/get_sun_times")
}

func TestAPIDocs(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := serve(s, getRequest("/api/docs"))
	require.Equal(t, http.StatusOK, rec.Code)

	docs := decodeJSON[APIDocs](t, rec)
	assert.Equal(t, "Sunrise-Sunset API", docs.Title)
	assert.Equal(t, "1.0.0", docs.Version)
	assert.Equal(t, "Get sunrise and sunset times for any location and date", docs.Description)

	ep, ok := docs.Endpoints["GET /api/sun_times"]
	require.True(t, ok)
	assert.Equal(t, "Latitude in decimal degrees (required)", ep.Parameters["latitude"])
	assert.Equal(t, "/api/sun_times?latitude=40.7128&longitude=-74.0060&date=2025-06-21", ep.Example)
}

func TestParseAPIDocsRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := parseAPIDocs([]byte("title: x\n"))
	require.Error(t, err)
	_, err = parseAPIDocs([]byte(":\tnot yaml"))
	require.Error(t, err)
}

func TestRateLimitedEndpoints(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(2, ratelimit.WithLogger(logger.NewDiscardLogger()))
	s, geo := newTestServer(t, WithRateLimiter(limiter))
	geo.On("Reverse", nyLat, nyLon).Return(nyName, nil)

	target := "/api/sun_times?latitude=40.7128&longitude=-74.0060&date=2025-06-21"
	for range 2 {
		require.Equal(t, http.StatusOK, serve(s, getRequest(target)).Code)
	}

	rec := serve(s, getRequest(target))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Rate limit exceeded. Please try again later."}`, rec.Body.String())

	// The shared budget also covers the UI endpoints
	rec = serve(s, formRequest("/geocode", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another client has its own budget
	req := getRequest(target)
	req.RemoteAddr = "198.51.100.7:4242"
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	// Unlimited endpoints keep working
	assert.Equal(t, http.StatusOK, serve(s, getRequest("/api/docs")).Code)
	assert.Equal(t, http.StatusOK, serve(s, getRequest("/health")).Code)
}

func TestHealthPurgesStaleEntries(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	limiter := ratelimit.New(60, ratelimit.WithClock(clock.Now), ratelimit.WithLogger(logger.NewDiscardLogger()))
	s, _ := newTestServer(t, WithRateLimiter(limiter), WithClock(clock.Now))

	rec := serve(s, formRequest("/geocode", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	health := decodeJSON[HealthResponse](t, serve(s, getRequest("/health")))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.ActiveRateLimits)
	assert.Equal(t, "0s", health.Uptime)

	ts, err := time.ParseInLocation(healthTimestampLayout, health.Timestamp, time.Local)
	require.NoError(t, err)
	assert.True(t, ts.Equal(testNow), "timestamp %s", health.Timestamp)

	clock.Advance(2*ratelimit.DefaultWindow + time.Second)

	health = decodeJSON[HealthResponse](t, serve(s, getRequest("/health")))
	assert.Equal(t, 0, health.ActiveRateLimits)
	assert.InDelta(t, 121, health.UptimeSeconds, 0.001)
	assert.Equal(t, "2m1s", health.Uptime)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	s, _ := newTestServer(t, WithMetrics(m))

	require.Equal(t, http.StatusOK, serve(s, getRequest("/api/docs")).Code)
	require.Equal(t, http.StatusBadRequest, serve(s, getRequest("/api/sun_times")).Code)

	rec := serve(s, getRequest("/metrics"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/docs",status_code="200"} 1`)
	assert.Contains(t, body, `http_request_errors_total{error_class="client",method="GET",path="/api/sun_times"} 1`)

	// Without metrics the endpoint does not exist
	plain, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, serve(plain, getRequest("/metrics")).Code)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.CleanupInterval = 10 * time.Millisecond

	s, err := New(cfg,
		WithGeocoder(&mockGeocoder{}),
		WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Echo().ListenerAddr() != nil },
		2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Echo().ListenerAddr().String() + "/health") //nolint:noctx // test
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.True(t, strings.Contains(string(body), `"status":"healthy"`))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:5000", cfg.Address())
	require.NoError(t, cfg.Validate())

	settings := &conf.Settings{Debug: true}
	settings.Server = conf.ServerSettings{Host: "127.0.0.1", Port: 8080, BodyLimit: "1K", TrustProxy: true}
	settings.RateLimit.CleanupInterval = time.Minute
	settings.Metrics.Path = "/internal/metrics"

	cfg = ConfigFromSettings(settings)
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
	assert.Equal(t, "1K", cfg.BodyLimit)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, "/internal/metrics", cfg.MetricsPath)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.Debug)
	require.NoError(t, cfg.Validate())

	cfg.ReadTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestTrustProxyUsesForwardedFor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.TrustProxy = true
	limiter := ratelimit.New(1, ratelimit.WithLogger(logger.NewDiscardLogger()))
	s, err := New(cfg,
		WithGeocoder(&mockGeocoder{}),
		WithLogger(logger.NewDiscardLogger()),
		WithRateLimiter(limiter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := formRequest("/geocode", nil)
		req.RemoteAddr = "10.0.0.1:5555" // private proxy address
		req.Header.Set("X-Forwarded-For", client)
		assert.Equal(t, http.StatusBadRequest, serve(s, req).Code, client)
	}
	assert.Equal(t, 2, limiter.Len())
}
