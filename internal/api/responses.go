package api

import (
	"time"

	"github.com/google/uuid"
)

// Time formats of the two sun time surfaces
const (
	clockLayout = "15:04:05"
	isoLayout   = time.RFC3339
)

// StatusResponse is the envelope of the UI endpoints
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func statusError(message string) StatusResponse {
	return StatusResponse{Status: "error", Message: message}
}

// UITimes is one timezone's view in the UI sun times response
type UITimes struct {
	Sunrise  string `json:"sunrise"`
	Sunset   string `json:"sunset"`
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
}

// UILocation describes the requested location in the UI response
type UILocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// UISunTimesResponse is returned by POST /get_sun_times
type UISunTimesResponse struct {
	Status   string     `json:"status"`
	UTC      UITimes    `json:"utc"`
	Local    UITimes    `json:"local"`
	Location UILocation `json:"location"`
}

// GeocodeResponse is returned by POST /geocode
type GeocodeResponse struct {
	Status    string  `json:"status"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// APIEvents holds RFC 3339 event instants
type APIEvents struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
	Noon    string `json:"noon"`
}

// APILocation describes the requested location in the API response
type APILocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// APISunTimes groups the UTC and local event sets
type APISunTimes struct {
	UTC   APIEvents `json:"utc"`
	Local APIEvents `json:"local"`
}

// APISunTimesResponse is returned by GET /api/sun_times
type APISunTimesResponse struct {
	Success  bool        `json:"success"`
	Date     string      `json:"date"`
	Location APILocation `json:"location"`
	SunTimes APISunTimes `json:"sun_times"`
}

// APIErrorResponse is the error body of the JSON API
type APIErrorResponse struct {
	Error              string            `json:"error"`
	RequiredParameters map[string]string `json:"required_parameters,omitempty"`
	CorrelationID      string            `json:"correlation_id,omitempty"` // set on unexpected errors
}

// requiredParameters documents the API parameters in missing-parameter errors
var requiredParameters = map[string]string{
	"latitude":  "Latitude in decimal degrees",
	"longitude": "Longitude in decimal degrees",
	"date":      "Date in YYYY-MM-DD format (optional, defaults to today)",
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status           string  `json:"status"`
	Timestamp        string  `json:"timestamp"`
	ActiveRateLimits int     `json:"active_rate_limits"`
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	MemoryRSSBytes   uint64  `json:"memory_rss_bytes,omitempty"`
}

// generateCorrelationID creates a short identifier for matching an error
// response with its log entry
func generateCorrelationID() string {
	return uuid.NewString()[:8]
}
