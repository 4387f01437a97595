package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sunrise-go/internal/logger"
)

type observation struct {
	method string
	path   string
	status int
}

type recordingHTTP struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingHTTP) RecordHTTPRequest(method, path string, statusCode int, _ time.Duration, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, path, statusCode})
}

func newTestEcho(t *testing.T) (*echo.Echo, *bytes.Buffer, *recordingHTTP) {
	t.Helper()

	var buf bytes.Buffer
	cl, err := logger.NewCentralLoggerWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, &buf)
	require.NoError(t, err)

	rec := &recordingHTTP{}
	e := echo.New()
	e.Use(NewRequestID())
	e.Use(NewRequestLogger(cl.Module("http"), rec))
	e.GET("/items/:id", func(c echo.Context) error {
		traceID, _ := c.Request().Context().Value(logger.TraceIDKey).(string)
		return c.String(http.StatusOK, traceID)
	})
	return e, &buf, rec
}

func TestRequestIDPropagatesToContext(t *testing.T) {
	t.Parallel()

	e, buf, _ := newTestEcho(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), `"module":"http"`)
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	t.Parallel()

	e, buf, recorder := newTestEcho(t)

	for _, path := range []string{"/items/1", "/items/2", "/nope"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.obs, 3)
	assert.Equal(t, observation{http.MethodGet, "/items/:id", http.StatusOK}, recorder.obs[0])
	assert.Equal(t, observation{http.MethodGet, "/items/:id", http.StatusOK}, recorder.obs[1])
	assert.Equal(t, http.StatusNotFound, recorder.obs[2].status)
	assert.NotEqual(t, "/items/:id", recorder.obs[2].path)
	assert.NotEmpty(t, recorder.obs[2].path)

	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestSecureHeadersAndBodyLimit(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewSecureHeaders(DefaultSecurityConfig()))
	e.Use(NewBodyLimit("8B"))
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("tiny")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get(echo.HeaderXFrameOptions))

	csp := rec.Header().Get(echo.HeaderContentSecurityPolicy)
	assert.Equal(t, DefaultContentSecurityPolicy, csp)
	assert.Contains(t, csp, "https://unpkg.com")
	assert.Contains(t, csp, "https://cdn.jsdelivr.net")
	assert.Contains(t, csp, "https://*.tile.openstreetmap.org")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("far too large body")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
