// internal/suncalc/suncalc.go

package suncalc

import (
	"fmt"
	"time"

	"github.com/sj14/astral/pkg/astral"

	"github.com/tphakala/sunrise-go/internal/errors"
)

// DateLayout is the calendar date format accepted and produced by the API
const DateLayout = "2006-01-02"

// Events holds one set of sun event instants
type Events struct {
	Sunrise time.Time
	Sunset  time.Time
	Noon    time.Time
}

// SunTimes holds sun events for a calendar date, both in UTC and in the
// location's own timezone. Each set is computed so that its events fall on
// Date as seen in that set's zone.
type SunTimes struct {
	Date     time.Time // civil date, midnight UTC
	Timezone string    // IANA name of the local zone
	UTC      Events
	Local    Events
}

// MetricsRecorder receives calculation events. Implemented by
// observability/metrics.SunCalcMetrics.
type MetricsRecorder interface {
	RecordCalculation(status string, duration time.Duration)
	RecordAstralError(event string)
}

// SunCalc calculates sun event times with the astral library
type SunCalc struct {
	metrics MetricsRecorder
}

// NewSunCalc creates a calculator. metrics may be nil.
func NewSunCalc(metrics MetricsRecorder) *SunCalc {
	return &SunCalc{metrics: metrics}
}

type eventFunc func(astral.Observer, time.Time) (time.Time, error)

func noon(obs astral.Observer, date time.Time) (time.Time, error) {
	return astral.Noon(obs, date), nil
}

// Compute returns sunrise, sunset and solar noon for the given calendar
// date at the coordinates. Only the year, month and day of date are used.
// A nil tz is treated as UTC.
func (sc *SunCalc) Compute(lat, lon float64, tz *time.Location, date time.Time) (SunTimes, error) {
	start := time.Now()

	if tz == nil {
		tz = time.UTC
	}
	civil := CivilDate(date)
	observer := astral.Observer{Latitude: lat, Longitude: lon}

	result := SunTimes{Date: civil, Timezone: tz.String()}

	var err error
	if result.UTC, err = sc.eventsFor(observer, civil, time.UTC); err == nil {
		result.Local, err = sc.eventsFor(observer, civil, tz)
	}

	if sc.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		sc.metrics.RecordCalculation(status, time.Since(start))
	}

	if err != nil {
		return SunTimes{}, errors.New(err).
			Component("suncalc").
			Category(errors.CategoryCalculation).
			Context("date", civil.Format(DateLayout)).
			Context("timezone", tz.String()).
			Build()
	}
	return result, nil
}

func (sc *SunCalc) eventsFor(obs astral.Observer, civil time.Time, loc *time.Location) (Events, error) {
	sunrise, err := sc.eventOnDate("sunrise", astral.Sunrise, obs, civil, loc)
	if err != nil {
		return Events{}, err
	}
	sunset, err := sc.eventOnDate("sunset", astral.Sunset, obs, civil, loc)
	if err != nil {
		return Events{}, err
	}
	solarNoon, err := sc.eventOnDate("noon", noon, obs, civil, loc)
	if err != nil {
		return Events{}, err
	}
	return Events{Sunrise: sunrise, Sunset: sunset, Noon: solarNoon}, nil
}

// eventOnDate computes an event for civil and, when the result lands on a
// neighbouring date in loc, recomputes it for the adjacent day so that the
// returned instant falls on civil in loc.
func (sc *SunCalc) eventOnDate(name string, fn eventFunc, obs astral.Observer, civil time.Time, loc *time.Location) (time.Time, error) {
	t, err := fn(obs, civil)
	if err != nil {
		return time.Time{}, sc.astralError(name, err)
	}

	switch compareDates(t.In(loc), civil) {
	case -1:
		t, err = fn(obs, civil.AddDate(0, 0, 1))
	case 1:
		t, err = fn(obs, civil.AddDate(0, 0, -1))
	default:
		return t.In(loc), nil
	}
	if err != nil {
		return time.Time{}, sc.astralError(name, err)
	}
	return t.In(loc), nil
}

func (sc *SunCalc) astralError(event string, err error) error {
	if sc.metrics != nil {
		sc.metrics.RecordAstralError(event)
	}
	return fmt.Errorf("failed to calculate %s: %w", event, err)
}

// CivilDate truncates t to its calendar date, expressed as midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date. Month and day must be
// zero padded; "2025-6-1" is rejected.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// compareDates compares the calendar date of t with civil (-1, 0, 1)
func compareDates(t, civil time.Time) int {
	return CivilDate(t).Compare(civil)
}
