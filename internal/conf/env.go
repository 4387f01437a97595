// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "DEBUG", validateEnvBool},
		{"log.level", "LOG_LEVEL", validateEnvLogLevel},
		{"log.format", "LOG_FORMAT", validateEnvLogFormat},

		{"server.port", "PORT", validateEnvPort},
		{"server.trustproxy", "TRUST_PROXY", validateEnvBool},
		{"ratelimit.limit", "RATE_LIMIT", validateEnvRateLimit},

		{"geocoder.endpoint", "GEOCODER_ENDPOINT", validateEnvURL},
		{"geocoder.useragent", "GEOCODER_USER_AGENT", nil},
		{"geocoder.timeout", "GEOCODER_TIMEOUT", validateEnvDuration},

		{"metrics.enabled", "METRICS_ENABLED", validateEnvBool},
		{"sentry.dsn", "SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug", "info", "warn", "warning", "error", "critical":
		return nil
	}
	return fmt.Errorf("must be one of: DEBUG, INFO, WARNING, ERROR")
}

func validateEnvLogFormat(value string) error {
	switch strings.ToLower(value) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("must be one of: text, json")
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvRateLimit(value string) error {
	limit, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid rate limit: %w", err)
	}
	if limit < 1 {
		return fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}
