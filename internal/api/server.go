package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/sunrise-go/frontend"
	mw "github.com/tphakala/sunrise-go/internal/api/middleware"
	"github.com/tphakala/sunrise-go/internal/geocode"
	"github.com/tphakala/sunrise-go/internal/logger"
	"github.com/tphakala/sunrise-go/internal/observability"
	"github.com/tphakala/sunrise-go/internal/ratelimit"
	"github.com/tphakala/sunrise-go/internal/suncalc"
	"github.com/tphakala/sunrise-go/internal/timezone"
)

// TimezoneResolver maps coordinates to an IANA zone name. It never fails;
// unknown locations resolve to "UTC".
type TimezoneResolver interface {
	Resolve(lat, lon float64) string
}

// SunCalculator computes sun events for a location and calendar date
type SunCalculator interface {
	Compute(lat, lon float64, tz *time.Location, date time.Time) (suncalc.SunTimes, error)
}

// Server is the HTTP server for sunrise-go.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	geocoder  geocode.Geocoder
	timezones TimezoneResolver
	sunCalc   SunCalculator
	limiter   *ratelimit.Limiter
	metrics   *observability.Metrics
	docs      *APIDocs

	now       func() time.Time
	startTime time.Time

	// Lifecycle management; the rate limit janitor runs from New until Shutdown
	cancel      context.CancelFunc
	janitorDone <-chan struct{}
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithGeocoder sets the forward and reverse geocoder.
func WithGeocoder(g geocode.Geocoder) ServerOption {
	return func(s *Server) {
		s.geocoder = g
	}
}

// WithTimezoneResolver sets the timezone resolver.
func WithTimezoneResolver(r TimezoneResolver) ServerOption {
	return func(s *Server) {
		s.timezones = r
	}
}

// WithSunCalculator sets the sun time calculator.
func WithSunCalculator(sc SunCalculator) ServerOption {
	return func(s *Server) {
		s.sunCalc = sc
	}
}

// WithRateLimiter sets the limiter guarding the computation endpoints.
func WithRateLimiter(l *ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithMetrics enables request metrics and the Prometheus endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the clock used for default dates and timestamps.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a new HTTP server with the given configuration and options.
// A geocoder is required; the other collaborators have defaults.
func New(config *Config, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config: config,
		now:    time.Now,
		cancel: cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.geocoder == nil {
		cancel()
		return nil, fmt.Errorf("geocoder is required")
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	if s.timezones == nil {
		s.timezones = timezone.NewResolver(s.log.Module("timezone"))
	}
	if s.sunCalc == nil {
		var rec suncalc.MetricsRecorder
		if s.metrics != nil {
			rec = s.metrics.SunCalc
		}
		s.sunCalc = suncalc.NewSunCalc(rec)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.DefaultLimit, ratelimit.WithLogger(s.log.Module("ratelimit")))
	}
	s.startTime = s.now()

	docs, err := LoadAPIDocs()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load API docs: %w", err)
	}
	s.docs = docs

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	if config.Debug {
		s.echo.Logger.SetLevel(log.DEBUG)
	} else {
		s.echo.Logger.SetLevel(log.ERROR)
	}

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	if config.TrustProxy {
		s.echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		s.echo.IPExtractor = echo.ExtractIPDirect()
	}

	renderer, err := NewTemplateRenderer(frontend.TemplatesFS, s.log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.echo.Renderer = renderer

	s.setupMiddleware()
	s.setupRoutes()

	s.janitorDone = s.limiter.StartJanitor(ctx, config.CleanupInterval)

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug),
		logger.Int("rate_limit", s.limiter.Limit()),
		logger.Bool("metrics", s.metrics != nil))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestID())

	var recorder mw.HTTPRecorder
	if s.metrics != nil {
		recorder = s.metrics.HTTP
	}
	s.echo.Use(mw.NewRequestLogger(s.log.Module("http"), recorder))

	securityConfig := mw.DefaultSecurityConfig()
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	limited := ratelimit.Middleware(s.limiter)

	s.echo.GET("/", s.index)
	s.echo.GET("/health", s.healthCheck)
	s.echo.StaticFS("/static", frontend.StaticFS)

	s.echo.POST("/get_sun_times", s.getSunTimes, limited)
	s.echo.POST("/geocode", s.geocodeAddress, limited)

	s.echo.GET("/api/sun_times", s.apiSunTimes, limited)
	s.echo.GET("/api/docs", s.apiDocs)

	if s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins serving and blocks until the server is shut down.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.log.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.Start)
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutdown signal received, initiating graceful shutdown")
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	// Cancel context to stop background goroutines
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	<-s.janitorDone

	s.log.Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Limiter returns the rate limiter guarding the computation endpoints.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}
