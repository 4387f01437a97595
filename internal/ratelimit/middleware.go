package ratelimit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/sunrise-go/internal/logger"
)

// ExceededMessage is the body message of a denied request
const ExceededMessage = "Rate limit exceeded. Please try again later."

// ExceededResponse is the JSON body returned with 429
type ExceededResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Middleware wraps handlers so each request is admitted by l before it runs.
// The client identity is echo's RealIP, which honours the server's
// configured IPExtractor.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := c.RealIP()
			if l.Admit(identity) {
				return next(c)
			}

			l.log.Debug("request rate limited",
				logger.String("ip", identity),
				logger.String("path", c.Path()),
				logger.Int("limit", l.limit))

			return c.JSON(http.StatusTooManyRequests, ExceededResponse{
				Status:  "error",
				Message: ExceededMessage,
			})
		}
	}
}
