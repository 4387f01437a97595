package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/sunrise-go/internal/geocode"
	"github.com/tphakala/sunrise-go/internal/logger"
	"github.com/tphakala/sunrise-go/internal/suncalc"
	"github.com/tphakala/sunrise-go/internal/timezone"
)

// Messages of the UI endpoints
const (
	msgSunTimesFailed      = "Failed to calculate sun times: %s"
	msgAddressRequired     = "Address is required"
	msgAddressNotFound     = "Could not find coordinates for address: %s"
	msgGeocoderUnavailable = "Geocoding service timed out or error. Please try again."
	msgGeocodeFailed       = "Failed to geocode address: %s"
	msgUnexpected          = "An unexpected error occurred"
)

// indexData is passed to the index template
type indexData struct {
	Title   string
	Version string
}

// index renders the single page UI
func (s *Server) index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", indexData{
		Title:   "Sunrise & Sunset Times",
		Version: s.config.Version,
	})
}

// resolvedLocation is the output of the concurrent collaborator lookups
type resolvedLocation struct {
	zoneName string
	zone     *time.Location
	name     string
}

// resolveLocation looks up the timezone and the reverse geocoded name of
// the coordinates concurrently. Both lookups produce fallbacks instead of
// errors, so the group never fails.
func (s *Server) resolveLocation(ctx context.Context, lat, lon float64) resolvedLocation {
	var res resolvedLocation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.zoneName = s.timezones.Resolve(lat, lon)
		res.zone = timezone.LoadOrUTC(res.zoneName)
		return nil
	})
	g.Go(func() error {
		res.name = geocode.LocationName(gctx, s.geocoder, s.requestLogger(ctx), lat, lon)
		return nil
	})
	_ = g.Wait()

	return res
}

// requestLogger returns the server logger carrying the request trace ID
func (s *Server) requestLogger(ctx context.Context) logger.Logger {
	return s.log.WithContext(ctx)
}

// getSunTimes handles the UI form: coordinates and an optional date in,
// clock times in UTC and local time out.
func (s *Server) getSunTimes(c echo.Context) error {
	ctx := c.Request().Context()
	log := s.requestLogger(ctx)

	fail := func(detail string) error {
		return c.JSON(http.StatusBadRequest, statusError(fmt.Sprintf(msgSunTimesFailed, detail)))
	}

	lat, lon, err := parseCoordinates(c.FormValue("latitude"), c.FormValue("longitude"))
	if err != nil {
		return fail(formatCoordinateError(err))
	}
	date, err := parseDateParam(c.FormValue("date"), s.now())
	if err != nil {
		return fail(formatCoordinateError(err))
	}

	zoneName := s.timezones.Resolve(lat, lon)
	zone := timezone.LoadOrUTC(zoneName)
	log.Debug("location timezone resolved", logger.String("timezone", zoneName))

	times, err := s.sunCalc.Compute(lat, lon, zone, date)
	if err != nil {
		log.Error("error calculating sun times", logger.Error(err))
		return fail(err.Error())
	}

	dateStr := times.Date.Format(suncalc.DateLayout)
	resp := UISunTimesResponse{
		Status: "success",
		UTC: UITimes{
			Sunrise:  times.UTC.Sunrise.Format(clockLayout),
			Sunset:   times.UTC.Sunset.Format(clockLayout),
			Date:     dateStr,
			Timezone: timezone.Fallback,
		},
		Local: UITimes{
			Sunrise:  times.Local.Sunrise.Format(clockLayout),
			Sunset:   times.Local.Sunset.Format(clockLayout),
			Date:     dateStr,
			Timezone: zoneName,
		},
		Location: UILocation{
			Latitude:  lat,
			Longitude: lon,
			Name:      geocode.LocationName(ctx, s.geocoder, log, lat, lon),
		},
	}
	return c.JSON(http.StatusOK, resp)
}

// geocodeAddress handles the UI address search
func (s *Server) geocodeAddress(c echo.Context) error {
	ctx := c.Request().Context()
	log := s.requestLogger(ctx)

	address := c.FormValue("address")
	if geocode.NormalizeAddress(address) == "" {
		return c.JSON(http.StatusBadRequest, statusError(msgAddressRequired))
	}

	result, err := s.geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, GeocodeResponse{
			Status:    "success",
			Latitude:  result.Latitude,
			Longitude: result.Longitude,
			Address:   result.Address,
		})
	case geocode.IsNotFound(err):
		return c.JSON(http.StatusNotFound, statusError(fmt.Sprintf(msgAddressNotFound, address)))
	case geocode.IsUnavailable(err):
		log.Error("geocoder service error", logger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, statusError(msgGeocoderUnavailable))
	default:
		log.Error("error geocoding address", logger.Error(err))
		return c.JSON(http.StatusBadRequest, statusError(fmt.Sprintf(msgGeocodeFailed, err)))
	}
}

// apiSunTimes handles GET /api/sun_times
func (s *Server) apiSunTimes(c echo.Context) error {
	ctx := c.Request().Context()

	lat, lon, err := parseCoordinates(c.QueryParam("latitude"), c.QueryParam("longitude"))
	if err != nil {
		return s.apiValidationError(c, err)
	}
	date, err := parseDateParam(c.QueryParam("date"), s.now())
	if err != nil {
		return s.apiValidationError(c, err)
	}

	loc := s.resolveLocation(ctx, lat, lon)

	times, err := s.sunCalc.Compute(lat, lon, loc.zone, date)
	if err != nil {
		// Includes polar day and night, where the sun never rises or sets
		return s.apiUnexpectedError(c, err)
	}

	return c.JSON(http.StatusOK, APISunTimesResponse{
		Success: true,
		Date:    times.Date.Format(suncalc.DateLayout),
		Location: APILocation{
			Name:      loc.name,
			Latitude:  lat,
			Longitude: lon,
			Timezone:  loc.zoneName,
		},
		SunTimes: APISunTimes{
			UTC:   isoEvents(times.UTC),
			Local: isoEvents(times.Local),
		},
	})
}

func isoEvents(e suncalc.Events) APIEvents {
	return APIEvents{
		Sunrise: e.Sunrise.Format(isoLayout),
		Sunset:  e.Sunset.Format(isoLayout),
		Noon:    e.Noon.Format(isoLayout),
	}
}

func (s *Server) apiValidationError(c echo.Context, err error) error {
	msg, missing, ok := paramMessage(err)
	if !ok {
		return s.apiUnexpectedError(c, err)
	}
	resp := APIErrorResponse{Error: msg}
	if missing {
		resp.RequiredParameters = requiredParameters
	}
	return c.JSON(http.StatusBadRequest, resp)
}

// apiUnexpectedError logs err under a fresh correlation ID and hides its
// detail from the client
func (s *Server) apiUnexpectedError(c echo.Context, err error) error {
	correlationID := generateCorrelationID()
	s.requestLogger(c.Request().Context()).Error("API error",
		logger.String("correlation_id", correlationID),
		logger.String("path", c.Request().URL.Path),
		logger.String("ip", c.RealIP()),
		logger.Error(err))
	return c.JSON(http.StatusInternalServerError, APIErrorResponse{
		Error:         msgUnexpected,
		CorrelationID: correlationID,
	})
}

// apiDocs serves the static API description
func (s *Server) apiDocs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.docs)
}
