// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.timezone", "Local")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("server.bodylimit", "64K")
	v.SetDefault("server.trustproxy", false)

	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.cleanupinterval", 5*time.Minute)

	v.SetDefault("geocoder.endpoint", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.useragent", AppName+"/1.0")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.requestspersecond", 1.0)
	v.SetDefault("geocoder.language", "en")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
