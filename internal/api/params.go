package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/sunrise-go/internal/errors"
	"github.com/tphakala/sunrise-go/internal/suncalc"
)

// Validation messages returned by the JSON API
const (
	msgMissingParams = "Missing required parameters: latitude and longitude"
	msgNotNumeric    = "Invalid coordinates. Latitude and longitude must be numeric values"
	msgOutOfRange    = "Invalid coordinates. Latitude must be between -90 and 90, longitude between -180 and 180"
	msgBadDate       = "Invalid date format. Use YYYY-MM-DD"
)

// Coordinate bounds in decimal degrees
const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// paramError is a request validation failure carrying the client-facing message
type paramError struct {
	message string
	missing bool
}

func (e *paramError) Error() string { return e.message }

func newParamError(message string) error {
	return errors.New(&paramError{message: message}).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// paramMessage extracts the client-facing message of a validation failure
func paramMessage(err error) (msg string, missing bool, ok bool) {
	var pe *paramError
	if errors.As(err, &pe) {
		return pe.message, pe.missing, true
	}
	return "", false, false
}

// parseCoordinates validates raw latitude and longitude parameters
func parseCoordinates(rawLat, rawLon string) (lat, lon float64, err error) {
	rawLat, rawLon = strings.TrimSpace(rawLat), strings.TrimSpace(rawLon)
	if rawLat == "" || rawLon == "" {
		return 0, 0, errors.New(&paramError{message: msgMissingParams, missing: true}).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	lat, latErr := strconv.ParseFloat(rawLat, 64)
	lon, lonErr := strconv.ParseFloat(rawLon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, newParamError(msgNotNumeric)
	}

	// NaN fails both comparisons and is rejected here too
	if !(lat >= minLatitude && lat <= maxLatitude) || !(lon >= minLongitude && lon <= maxLongitude) {
		return 0, 0, newParamError(msgOutOfRange)
	}
	return lat, lon, nil
}

// parseDateParam parses an optional YYYY-MM-DD date. An empty value means
// today on the server's local clock.
func parseDateParam(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return suncalc.CivilDate(now.Local()), nil
	}
	d, err := suncalc.ParseDate(raw)
	if err != nil {
		return time.Time{}, newParamError(msgBadDate)
	}
	return d, nil
}

// formatCoordinateError renders a validation failure for the UI endpoints
func formatCoordinateError(err error) string {
	if msg, _, ok := paramMessage(err); ok {
		return msg
	}
	return fmt.Sprint(err)
}
