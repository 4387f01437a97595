// Package timezone maps coordinates to IANA timezone names.
package timezone

import (
	"time"

	"github.com/bradfitz/latlong"

	"github.com/tphakala/sunrise-go/internal/logger"
)

// Fallback is returned whenever a zone cannot be determined
const Fallback = "UTC"

// latlong returns this sentinel when built without its generated tables
const tablesMissing = "tables not generated yet"

// Resolver looks up timezones from the embedded latlong polygon tables.
// It never fails; unknown locations resolve to Fallback.
type Resolver struct {
	log    logger.Logger
	lookup func(lat, lon float64) string
}

// NewResolver creates a resolver. A nil logger disables fallback logging.
func NewResolver(log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Resolver{log: log, lookup: latlong.LookupZoneName}
}

// Resolve returns the IANA zone name for the coordinates, or "UTC".
func (r *Resolver) Resolve(lat, lon float64) string {
	name := r.lookup(lat, lon)
	if name == "" || name == tablesMissing {
		r.log.Debug("timezone lookup fell back to UTC",
			logger.Float64("latitude", lat),
			logger.Float64("longitude", lon))
		return Fallback
	}

	// Names from the tables must also load on this host
	if _, err := time.LoadLocation(name); err != nil {
		r.log.Warn("timezone not loadable, using UTC",
			logger.String("timezone", name),
			logger.Error(err))
		return Fallback
	}
	return name
}

// LoadOrUTC loads the named location, returning time.UTC on failure.
func LoadOrUTC(name string) *time.Location {
	if name == "" || name == Fallback {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
