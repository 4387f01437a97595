package geocode

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tphakala/sunrise-go/internal/errors"
	"github.com/tphakala/sunrise-go/internal/httpclient"
)

// newPacedNominatim uses the default pacing of one request per second
func newPacedNominatim(t *testing.T, timeout time.Duration) *Nominatim {
	t.Helper()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testEndpoint+"/reverse",
		httpmock.NewStringResponder(http.StatusOK, reverseNewYork))

	g, err := NewNominatim(NominatimConfig{
		Endpoint: testEndpoint,
		Client: httpclient.New(&httpclient.Config{
			DefaultTimeout: timeout,
			Transport:      mock,
		}),
	})
	require.NoError(t, err)
	return g
}

func TestPacingWaitFailsFastPastTimeout(t *testing.T) {
	t.Parallel()

	g := newPacedNominatim(t, 200*time.Millisecond)

	_, err := g.Reverse(t.Context(), 40.7128, -74.006)
	require.NoError(t, err)

	start := time.Now()
	_, err = g.Reverse(t.Context(), 40.7128, -74.006)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.True(t, IsUnavailable(err))
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryTimeout))
}

func TestConcurrentLookupsBoundedByTimeout(t *testing.T) {
	t.Parallel()

	const callers = 4
	g := newPacedNominatim(t, 200*time.Millisecond)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names []string
	)
	start := time.Now()
	for range callers {
		wg.Go(func() {
			name := LocationName(t.Context(), g, nil, 40.7128, -74.006)
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Less(t, time.Since(start), time.Second, "lookups must not queue behind the pacing limiter")
	require.Len(t, names, callers)
	assert.Contains(t, names, "City Hall Park, Manhattan, New York, United States")
	assert.Contains(t, names, "Lat: 40.7128, Long: -74.006")
}
