package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sunrise-go/internal/geocode"
	"github.com/tphakala/sunrise-go/internal/logger"
)

// testNow is the fixed server clock used by handler tests
var testNow = time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)

// mockGeocoder is a testify mock of geocode.Geocoder
type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Name() string { return "mock" }

func (m *mockGeocoder) Geocode(_ context.Context, address string) (geocode.Result, error) {
	args := m.Called(address)
	return args.Get(0).(geocode.Result), args.Error(1)
}

func (m *mockGeocoder) Reverse(_ context.Context, lat, lon float64) (string, error) {
	args := m.Called(lat, lon)
	return args.String(0), args.Error(1)
}

// testClock is a settable clock shared by the server and the rate limiter
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testNow} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestServer builds a server with a mock geocoder, a discard logger and
// the fixed clock. Extra options are applied last.
func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *mockGeocoder) {
	t.Helper()

	geo := &mockGeocoder{}
	base := []ServerOption{
		WithGeocoder(geo),
		WithLogger(logger.NewDiscardLogger()),
		WithClock(func() time.Time { return testNow }),
	}
	s, err := New(DefaultConfig(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, geo
}

// serve sends req through the full echo stack
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func getRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, http.NoBody)
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
