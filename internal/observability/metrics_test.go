package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewMetrics uses a private registry, so concurrent calls must not collide
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if err != nil {
				errs <- err
				return
			}
			if m.HTTP == nil || m.RateLimit == nil || m.SunCalc == nil || m.Geocoder == nil {
				errs <- assert.AnError
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("NewMetrics failed: %v", err)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.RateLimit.RecordDecision(false)
	m.SunCalc.RecordCalculation("success", time.Millisecond)
	m.HTTP.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond, 64)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `ratelimit_decisions_total{decision="denied"} 1`)
	assert.Contains(t, text, `suncalc_operations_total{status="success"} 1`)
	assert.Contains(t, text, `http_requests_total{method="GET",path="/health",status_code="200"} 1`)
	assert.Contains(t, text, "go_goroutines")
	assert.NotNil(t, m.Registry())
}
