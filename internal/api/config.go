// Package api provides the HTTP server for sunrise-go: the web UI
// endpoints, the JSON API and the operational endpoints.
package api

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tphakala/sunrise-go/internal/conf"
	"github.com/tphakala/sunrise-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPort            = 5000
	DefaultBodyLimit       = "64K"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string
	Port int

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit string // Maximum request body size (e.g., "64K")

	// Client identity comes from X-Forwarded-For instead of the socket peer
	TrustProxy bool

	// Prometheus endpoint, registered only when metrics are supplied
	MetricsPath string

	// Background rate limit cleanup; 0 disables the janitor
	CleanupInterval time.Duration

	Debug   bool
	Version string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MetricsPath:     "/metrics",
		Version:         "dev",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Host = settings.Server.Host
	cfg.Port = settings.Server.Port
	if settings.Server.ReadTimeout > 0 {
		cfg.ReadTimeout = settings.Server.ReadTimeout
	}
	if settings.Server.WriteTimeout > 0 {
		cfg.WriteTimeout = settings.Server.WriteTimeout
	}
	if settings.Server.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.Server.ShutdownTimeout
	}
	if settings.Server.BodyLimit != "" {
		cfg.BodyLimit = settings.Server.BodyLimit
	}
	cfg.TrustProxy = settings.Server.TrustProxy
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}
	cfg.CleanupInterval = settings.RateLimit.CleanupInterval
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Port 0 lets the kernel pick a free port
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	// Validate timeouts
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup interval must not be negative")
	}

	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, debug=%v, trust_proxy=%v",
		c.Address(), c.Debug, c.TrustProxy)
}
