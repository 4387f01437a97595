// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	switch strings.ToLower(settings.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "critical":
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("unknown log level %q", settings.Log.Level))
	}

	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.RateLimit.Limit < 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("rate limit must be positive, got %d", settings.RateLimit.Limit))
	}
	if settings.RateLimit.CleanupInterval < 0 {
		ve.Errors = append(ve.Errors, "rate limit cleanup interval must not be negative")
	}

	if err := validateGeocoderSettings(&settings.Geocoder); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		ve.Errors = append(ve.Errors, fmt.Sprintf("metrics path must start with '/', got %q", settings.Metrics.Path))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(s *ServerSettings) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", s.Port)
	}
	if s.BodyLimit != "" {
		if _, err := bytes.Parse(s.BodyLimit); err != nil {
			return fmt.Errorf("invalid server body limit %q: %w", s.BodyLimit, err)
		}
	}
	return nil
}

func validateGeocoderSettings(g *GeocoderSettings) error {
	if err := validateEnvURL(g.Endpoint); err != nil {
		return fmt.Errorf("geocoder endpoint: %w", err)
	}
	if strings.TrimSpace(g.UserAgent) == "" {
		// Nominatim rejects anonymous clients
		return fmt.Errorf("geocoder user agent must not be empty")
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("geocoder timeout must be positive, got %s", g.Timeout)
	}
	if g.RequestsPerSecond <= 0 {
		return fmt.Errorf("geocoder requests per second must be positive, got %g", g.RequestsPerSecond)
	}
	return nil
}
