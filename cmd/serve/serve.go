// Package serve implements the command that runs the HTTP server.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/sunrise-go/internal/api"
	"github.com/tphakala/sunrise-go/internal/buildinfo"
	"github.com/tphakala/sunrise-go/internal/conf"
	"github.com/tphakala/sunrise-go/internal/errors"
	"github.com/tphakala/sunrise-go/internal/geocode"
	"github.com/tphakala/sunrise-go/internal/httpclient"
	"github.com/tphakala/sunrise-go/internal/logger"
	"github.com/tphakala/sunrise-go/internal/observability"
	"github.com/tphakala/sunrise-go/internal/ratelimit"
	"github.com/tphakala/sunrise-go/internal/suncalc"
	"github.com/tphakala/sunrise-go/internal/timezone"
)

const sentryFlushTimeout = 2 * time.Second

// Command creates the serve command. Settings are loaded from v when the
// command runs, after flags have been parsed.
func Command(v *viper.Viper, info *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := conf.LoadWith(v)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), settings, info)
		},
	}
}

// Run wires the service together and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings, info *buildinfo.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := newLogger(settings)
	if err != nil {
		return err
	}
	logger.SetGlobal(cl)
	log := cl.Module("main")

	if err := errors.InitSentry(settings.Sentry.DSN, info.Release(conf.AppName), settings.Sentry.Environment); err != nil {
		// Telemetry is optional; run without it
		log.Warn("error telemetry disabled", logger.Error(err))
	}
	defer errors.FlushSentry(sentryFlushTimeout)

	opts := []api.ServerOption{api.WithLogger(cl.Module("api"))}
	limiterOpts := []ratelimit.Option{
		ratelimit.WithWindow(conf.RateWindow),
		ratelimit.WithLogger(cl.Module("ratelimit")),
	}
	nominatimCfg := geocode.NominatimConfig{
		Endpoint:          settings.Geocoder.Endpoint,
		Language:          settings.Geocoder.Language,
		RequestsPerSecond: settings.Geocoder.RequestsPerSecond,
		Logger:            cl.Module("geocode"),
	}
	sunCalc := suncalc.NewSunCalc(nil)

	if settings.Metrics.Enabled {
		metrics, err := observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		opts = append(opts, api.WithMetrics(metrics))
		limiterOpts = append(limiterOpts, ratelimit.WithMetrics(metrics.RateLimit))
		nominatimCfg.Metrics = metrics.Geocoder
		sunCalc = suncalc.NewSunCalc(metrics.SunCalc)
	}

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Geocoder.Timeout,
		UserAgent:      settings.Geocoder.UserAgent,
	})
	defer client.Close()
	clientLog := cl.Module("httpclient")
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error, d time.Duration) {
		fields := []logger.Field{
			logger.String("method", req.Method),
			logger.String("host", req.URL.Host),
			logger.String("path", req.URL.Path),
			logger.Duration("elapsed", d),
		}
		if resp != nil {
			fields = append(fields, logger.Int("status", resp.StatusCode))
		}
		if err != nil {
			fields = append(fields, logger.Error(err))
		}
		clientLog.WithContext(req.Context()).Debug("outbound request", fields...)
	})
	nominatimCfg.Client = client

	geocoder, err := geocode.NewNominatim(nominatimCfg)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(settings.RateLimit.Limit, limiterOpts...)

	serverCfg := api.ConfigFromSettings(settings)
	serverCfg.Version = info.GetVersion()

	opts = append(opts,
		api.WithGeocoder(geocoder),
		api.WithTimezoneResolver(timezone.NewResolver(cl.Module("timezone"))),
		api.WithSunCalculator(sunCalc),
		api.WithRateLimiter(limiter),
	)

	server, err := api.New(serverCfg, opts...)
	if err != nil {
		return err
	}

	log.Info("starting sunrise-go",
		logger.String("version", info.GetVersion()),
		logger.String("address", serverCfg.Address()),
		logger.Int("rate_limit", settings.RateLimit.Limit),
		logger.Bool("metrics", settings.Metrics.Enabled),
		logger.Bool("debug", settings.Debug))

	return server.Run(ctx)
}

// newLogger builds the central logger; debug mode forces debug level
func newLogger(settings *conf.Settings) (*logger.CentralLogger, error) {
	level := settings.Log.Level
	if settings.Debug {
		level = string(logger.LogLevelDebug)
	}
	cl, err := logger.NewCentralLogger(&logger.Config{
		Level:    level,
		Format:   settings.Log.Format,
		Timezone: settings.Log.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cl, nil
}
