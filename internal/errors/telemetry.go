// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
	hub     *sentry.Hub
}

// NewSentryReporter creates a reporter that captures on the current Sentry hub
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled, hub: sentry.CurrentHub()}
}

// NewSentryReporterWithHub creates a reporter bound to a specific hub
func NewSentryReporterWithHub(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{enabled: hub != nil, hub: hub}
}

// InitSentry initializes the Sentry SDK and installs a SentryReporter as the
// global reporter. An empty DSN disables telemetry.
func InitSentry(dsn, release, environment string) error {
	if dsn == "" {
		SetTelemetryReporter(nil)
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		Environment:      environment,
		AttachStacktrace: false,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.ServerName = ""
			event.Message = scrubMessageForPrivacy(event.Message)
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	SetTelemetryReporter(NewSentryReporter(true))
	return nil
}

// FlushSentry waits for queued events to be delivered
func FlushSentry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || sr.hub == nil || ee.IsReported() {
		return
	}

	scrubbedMessage := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	errorTitle := generateErrorTitle(ee)

	sr.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}

		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{Type: errorTitle, Value: scrubbedMessage}}

		sr.hub.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds a grouping title such as "Geocode Network Error Reverse Lookup"
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string
	if ee.Component != "" && ee.Component != ComponentUnknown {
		parts = append(parts, titleCase(ee.Component))
	}
	if c := formatCategoryForTitle(ee.Category); c != "" {
		parts = append(parts, c)
	}
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		words := strings.Fields(strings.ReplaceAll(op, "_", " "))
		for i, w := range words {
			words[i] = titleCase(w)
		}
		parts = append(parts, strings.Join(words, " "))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryHTTP:
		return "HTTP Error"
	case CategoryTimeout:
		return "Timeout"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryCalculation:
		return "Calculation Error"
	case CategoryIntegration:
		return "Integration Error"
	default:
		return string(category)
	}
}

// titleCase capitalizes the first letter of a string
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryTimeout, CategoryHTTP, CategoryIntegration:
		return sentry.LevelWarning // Often transient
	default:
		return sentry.LevelError
	}
}

var (
	reporterMu              sync.RWMutex
	globalTelemetryReporter TelemetryReporter
)

// SetTelemetryReporter sets the global telemetry reporter. Passing nil
// disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return globalTelemetryReporter
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	// Free-form addresses and coordinates are user data.
	addressRegex = regexp.MustCompile(`(?i)(address[=:]\s*)\S+`)
	coordRegex   = regexp.MustCompile(`-?\d{1,3}\.\d{3,}`)
	apiKeyRegex  = regexp.MustCompile(`(?i)(api[_-]?key|token|auth)[=:]\S+`)
)

// scrubMessageForPrivacy removes query strings, keys, addresses and precise
// coordinates from messages sent off-host.
func scrubMessageForPrivacy(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = apiKeyRegex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	scrubbed = addressRegex.ReplaceAllString(scrubbed, "${1}[REDACTED]")
	return coordRegex.ReplaceAllString(scrubbed, "[COORD]")
}
