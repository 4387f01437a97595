// Package metrics provides constants used across metric definitions.
package metrics

// Status label values shared by the collectors.
const (
	// StatusSuccess marks an operation that completed.
	StatusSuccess = "success"
	// StatusError marks an operation that failed.
	StatusError = "error"
	// StatusThrottled marks a request that never left the local rate limiter.
	StatusThrottled = "throttled"
)

// Rate limiter decision label values.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100B is the starting bucket for 100 byte histograms.
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 is used for response sizes.
	BucketFactor4 = 4

	// BucketCount8 defines 8 exponential buckets.
	BucketCount8 = 8
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
