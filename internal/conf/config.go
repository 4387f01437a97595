// conf/config.go settings structure and loading
package conf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// RateWindow is the fixed length of a rate-limit window.
const RateWindow = 60 * time.Second

// AppName is used for config directories and the geocoder User-Agent.
const AppName = "sunrise-go"

// Settings contains all configuration options for the service
type Settings struct {
	Debug bool `mapstructure:"debug"` // enables debug logging and echo debug mode

	Log struct {
		Level    string `mapstructure:"level"`    // debug, info, warn, error
		Format   string `mapstructure:"format"`   // text or json
		Timezone string `mapstructure:"timezone"` // timestamp zone for log records
	} `mapstructure:"log"`

	Server ServerSettings `mapstructure:"server"`

	RateLimit RateLimitSettings `mapstructure:"ratelimit"`

	Geocoder GeocoderSettings `mapstructure:"geocoder"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
}

// ServerSettings holds HTTP listener options
type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readtimeout"`
	WriteTimeout    time.Duration `mapstructure:"writetimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
	BodyLimit       string        `mapstructure:"bodylimit"`  // echo size notation, e.g. "64K"
	TrustProxy      bool          `mapstructure:"trustproxy"` // take client IP from X-Forwarded-For
}

// RateLimitSettings holds per-client request limiting options
type RateLimitSettings struct {
	Limit           int           `mapstructure:"limit"`           // requests per window
	CleanupInterval time.Duration `mapstructure:"cleanupinterval"` // 0 disables the background janitor
}

// GeocoderSettings holds Nominatim client options
type GeocoderSettings struct {
	Endpoint          string        `mapstructure:"endpoint"`
	UserAgent         string        `mapstructure:"useragent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requestspersecond"`
	Language          string        `mapstructure:"language"`
}

// Address returns the listen address in host:port form
func (s *ServerSettings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Load reads configuration from the global viper instance
func Load() (*Settings, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith reads defaults, the optional config file and environment
// variables into v and returns validated settings. Flags bound to v by the
// caller take precedence over everything else.
func LoadWith(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper sets defaults, binds environment variables and reads the
// config file if one exists.
func initViper(v *viper.Viper) error {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Running without a config file is the normal case
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in order of precedence.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", AppName))
	}
	return append(paths, filepath.Join("/etc", AppName))
}
