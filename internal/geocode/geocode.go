// Package geocode resolves addresses to coordinates and back.
package geocode

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"strings"

	"github.com/tphakala/sunrise-go/internal/errors"
	"github.com/tphakala/sunrise-go/internal/logger"
)

// ErrNotFound is wrapped by errors returned when the service has no match
var ErrNotFound = errors.NewStd("no matching location")

// Result is a forward geocoding match
type Result struct {
	Latitude  float64
	Longitude float64
	Address   string // canonical display name from the service
}

// Geocoder looks up coordinates for addresses and names for coordinates.
//
// Errors in category errors.CategoryNotFound mean the service answered but
// had no match. Errors in errors.CategoryNetwork or errors.CategoryTimeout
// mean the service could not be reached or failed.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, address string) (Result, error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// FallbackName is the location name used when reverse geocoding fails
func FallbackName(lat, lon float64) string {
	return "Lat: " + formatCoord(lat) + ", Long: " + formatCoord(lon)
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// LocationName reverse geocodes the coordinates and falls back to
// FallbackName on any failure. It never returns an empty string.
func LocationName(ctx context.Context, g Geocoder, log logger.Logger, lat, lon float64) string {
	if g == nil {
		return FallbackName(lat, lon)
	}
	name, err := g.Reverse(ctx, lat, lon)
	if err != nil || strings.TrimSpace(name) == "" {
		if err != nil && log != nil {
			log.Warn("reverse geocoding failed, using coordinates as name",
				logger.String("geocoder", g.Name()),
				logger.String("category", string(errors.CategoryOf(err))),
				logger.Error(err))
		}
		return FallbackName(lat, lon)
	}
	return name
}

// IsNotFound reports whether err means the service had no match
func IsNotFound(err error) bool {
	return errors.IsNotFound(err) || stderrors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err means the service timed out or failed
func IsUnavailable(err error) bool {
	switch errors.CategoryOf(err) {
	case errors.CategoryNetwork, errors.CategoryTimeout, errors.CategoryCancellation:
		return true
	}
	return false
}

// classify picks the error category of a transport failure
func classify(err error) errors.ErrorCategory {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.CategoryTimeout
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.CategoryCancellation
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.CategoryTimeout
	}
	return errors.CategoryNetwork
}
