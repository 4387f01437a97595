package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/tphakala/sunrise-go/internal/errors"
	"github.com/tphakala/sunrise-go/internal/httpclient"
	"github.com/tphakala/sunrise-go/internal/logger"
)

const (
	nominatimName = "nominatim"

	// DefaultEndpoint is the public OpenStreetMap Nominatim instance
	DefaultEndpoint = "https://nominatim.openstreetmap.org"

	maxResponseBytes = 1 << 20
	errorPreviewLen  = 200
	maxAddressLen    = 512
)

// MetricsRecorder receives geocoder request outcomes. Implemented by
// observability/metrics.GeocoderMetrics.
type MetricsRecorder interface {
	RecordRequest(operation, status string, duration time.Duration)
}

// NominatimConfig configures a Nominatim client
type NominatimConfig struct {
	Endpoint          string
	Language          string  // accept-language sent with requests
	RequestsPerSecond float64 // outbound pacing; public Nominatim allows 1
	Client            *httpclient.Client
	Logger            logger.Logger
	Metrics           MetricsRecorder
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim API
type Nominatim struct {
	endpoint string
	language string
	client   *httpclient.Client
	limiter  *rate.Limiter
	log      logger.Logger
	metrics  MetricsRecorder
}

// NewNominatim creates a Nominatim geocoder
func NewNominatim(cfg NominatimConfig) (*Nominatim, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, errors.New(fmt.Errorf("invalid geocoder endpoint: %w", err)).
			Component("geocode").
			Category(errors.CategoryConfiguration).
			Build()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	client := cfg.Client
	if client == nil {
		client = httpclient.New(nil)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	return &Nominatim{
		endpoint: endpoint,
		language: cfg.Language,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log,
		metrics:  cfg.Metrics,
	}, nil
}

// Name returns the provider name
func (n *Nominatim) Name() string { return nominatimName }

// Geocode returns the best match for a free-form address
func (n *Nominatim) Geocode(ctx context.Context, address string) (Result, error) {
	query := NormalizeAddress(address)
	if query == "" {
		return Result{}, errors.New(fmt.Errorf("address is empty")).
			Component("geocode").
			Category(errors.CategoryValidation).
			Build()
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	body, err := n.query(ctx, "search", params)
	if err != nil {
		return Result{}, err
	}

	value, err := jason.NewValueFromReader(strings.NewReader(body))
	if err != nil {
		return Result{}, n.malformed("search", err)
	}
	matches, err := value.Array()
	if err != nil {
		return Result{}, n.malformed("search", err)
	}
	if len(matches) == 0 {
		return Result{}, errors.New(fmt.Errorf("%w for address %q", ErrNotFound, query)).
			Component("geocode").
			Category(errors.CategoryNotFound).
			Build()
	}

	first, err := matches[0].Object()
	if err != nil {
		return Result{}, n.malformed("search", err)
	}
	lat, lon, err := parseLatLon(first)
	if err != nil {
		return Result{}, n.malformed("search", err)
	}
	display, _ := first.GetString("display_name")

	return Result{Latitude: lat, Longitude: lon, Address: display}, nil
}

// Reverse returns the display name of the place at the coordinates
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format": {"jsonv2"},
		"zoom":   {"18"},
	}

	body, err := n.query(ctx, "reverse", params)
	if err != nil {
		return "", err
	}

	obj, err := jason.NewObjectFromReader(strings.NewReader(body))
	if err != nil {
		return "", n.malformed("reverse", err)
	}

	// Open water and unmapped areas come back as {"error": "Unable to geocode"}
	if msg, errField := obj.GetString("error"); errField == nil {
		return "", errors.New(fmt.Errorf("%w: %s", ErrNotFound, msg)).
			Component("geocode").
			Category(errors.CategoryNotFound).
			Build()
	}

	name, err := obj.GetString("display_name")
	if err != nil || strings.TrimSpace(name) == "" {
		return "", errors.New(fmt.Errorf("%w: response has no display name", ErrNotFound)).
			Component("geocode").
			Category(errors.CategoryNotFound).
			Build()
	}
	return name, nil
}

// query performs one paced GET against the endpoint and returns the body
// of a 200 response. Non-200 answers and transport failures are returned
// as network or timeout errors.
func (n *Nominatim) query(ctx context.Context, operation string, params url.Values) (string, error) {
	reqID := uuid.New().String()[:8]
	log := n.log.With(logger.String("request_id", reqID), logger.String("operation", operation))
	start := time.Now()

	status := "error"
	defer func() {
		if n.metrics != nil {
			n.metrics.RecordRequest(operation, status, time.Since(start))
		}
	}()

	if n.language != "" {
		params.Set("accept-language", n.language)
	}
	fullURL := n.endpoint + "/" + operation + "?" + params.Encode()

	// The client timeout covers the pacing wait as well as the round trip
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.client.Timeout())
		defer cancel()
	}

	if err := n.limiter.Wait(ctx); err != nil {
		status = "throttled"
		log.Debug("geocoder pacing wait exceeds deadline", logger.Error(err))
		return "", n.throttledError(operation, reqID, err, time.Since(start))
	}

	log.Debug("sending geocoder request")
	resp, err := n.client.Get(ctx, fullURL)
	if err != nil {
		log.Warn("geocoder request failed", logger.Error(err))
		return "", n.transportError(operation, reqID, err, time.Since(start))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debug("failed to close response body", logger.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", n.transportError(operation, reqID, err, time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		preview := responsePreview(resp.Header.Get("Content-Type"), raw)
		log.Warn("geocoder returned non-OK status",
			logger.Int("status_code", resp.StatusCode),
			logger.String("response_preview", preview))
		return "", errors.New(fmt.Errorf("geocoder %s returned HTTP %d", operation, resp.StatusCode)).
			Component("geocode").
			Category(errors.CategoryNetwork).
			Context("operation", operation).
			Context("request_id", reqID).
			Context("status_code", resp.StatusCode).
			Context("response_preview", preview).
			Build()
	}

	status = "success"
	log.Debug("geocoder request completed", logger.Duration("elapsed", time.Since(start)))
	return string(raw), nil
}

func (n *Nominatim) transportError(operation, reqID string, err error, elapsed time.Duration) error {
	return errors.New(fmt.Errorf("geocoder %s failed: %w", operation, err)).
		Component("geocode").
		Category(classify(err)).
		Context("request_id", reqID).
		Timing(operation, elapsed).
		Build()
}

// throttledError reports a request that could not get a pacing slot before
// its deadline. rate.Limiter fails fast without waiting in that case.
func (n *Nominatim) throttledError(operation, reqID string, err error, elapsed time.Duration) error {
	category := errors.CategoryTimeout
	if errors.Is(err, context.Canceled) {
		category = errors.CategoryCancellation
	}
	return errors.New(fmt.Errorf("geocoder %s not sent within timeout: %w", operation, err)).
		Component("geocode").
		Category(category).
		Context("request_id", reqID).
		Timing(operation, elapsed).
		Build()
}

func (n *Nominatim) malformed(operation string, err error) error {
	return errors.New(fmt.Errorf("geocoder %s returned malformed response: %w", operation, err)).
		Component("geocode").
		Category(errors.CategoryIntegration).
		Context("operation", operation).
		Build()
}

// NormalizeAddress applies Unicode NFC normalization, collapses whitespace
// and caps the length of a user supplied address.
func NormalizeAddress(address string) string {
	s := strings.Join(strings.Fields(norm.NFC.String(address)), " ")
	if len(s) > maxAddressLen {
		s = strings.ToValidUTF8(s[:maxAddressLen], "")
	}
	return s
}

// parseLatLon reads Nominatim's string encoded coordinates
func parseLatLon(obj *jason.Object) (float64, float64, error) {
	latStr, err := obj.GetString("lat")
	if err != nil {
		return 0, 0, fmt.Errorf("missing lat: %w", err)
	}
	lonStr, err := obj.GetString("lon")
	if err != nil {
		return 0, 0, fmt.Errorf("missing lon: %w", err)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lat %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lon %q: %w", lonStr, err)
	}
	return lat, lon, nil
}

// responsePreview returns a short readable excerpt of an error body.
// Nominatim and proxies in front of it answer errors with HTML pages.
func responsePreview(contentType string, body []byte) string {
	text := string(body)
	if strings.Contains(contentType, "html") || strings.HasPrefix(strings.TrimSpace(text), "<") {
		text = html2text.HTML2Text(text)
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > errorPreviewLen {
		text = strings.ToValidUTF8(text[:errorPreviewLen], "") + "..."
	}
	return text
}
