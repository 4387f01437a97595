// Package middleware provides HTTP middleware components for the sunrise-go server.
package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/sunrise-go/internal/logger"
)

// unmatchedRoute labels requests that matched no registered route, keeping
// metric cardinality bounded.
const unmatchedRoute = "unmatched"

// HTTPRecorder receives completed request observations. Implemented by
// observability/metrics.HTTPMetrics.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration, size int64)
}

// NewRequestID assigns every request a UUID, echoes it in the X-Request-Id
// response header and stores it in the request context as the log trace ID.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}

// NewRequestLogger creates a request logging middleware that also feeds
// request metrics when recorder is non-nil.
func NewRequestLogger(log logger.Logger, recorder HTTPRecorder) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, recorder, nil)
}

// NewRequestLoggerWithSkipper creates a request logging middleware with a custom skipper.
func NewRequestLoggerWithSkipper(log logger.Logger, recorder HTTPRecorder, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:         skipper,
		LogStatus:       true,
		LogURI:          true,
		LogMethod:       true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogError:        true,
		LogRequestID:    true,
		LogResponseSize: true,
		HandleError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if recorder != nil {
				route := c.Path()
				if route == "" || route == "/*" {
					route = unmatchedRoute
				}
				recorder.RecordHTTPRequest(v.Method, route, v.Status, v.Latency, v.ResponseSize)
			}

			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
				logger.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			switch {
			case v.Status >= 500:
				log.Error("request", fields...)
			case v.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		},
	})
}
