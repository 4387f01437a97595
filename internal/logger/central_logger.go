package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	// Embedded tz database so LoadLocation works on hosts without zoneinfo.
	_ "time/tzdata"
)

const (
	// floatPrecisionRatio rounds floats to 3 decimal places in log output
	floatPrecisionRatio = 1000.0

	// FormatText and FormatJSON select the record encoding
	FormatText = "text"
	FormatJSON = "json"
)

// Config controls the central logger
type Config struct {
	Level    string // debug, info, warn, error (case-insensitive)
	Format   string // text (default) or json
	Timezone string // IANA zone for timestamps; "" or "Local" means host zone
}

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger, creating an info-level console
// logger if none was set.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = newCentralLogger(os.Stdout, slog.LevelInfo, FormatText, time.Local)
	}
	return globalLogger
}

type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger owns the slog handler and hands out module loggers
type CentralLogger struct {
	handler  slog.Handler
	level    *slog.LevelVar
	timezone *time.Location
}

// NewCentralLogger creates a logger writing to stdout
func NewCentralLogger(cfg *Config) (*CentralLogger, error) {
	return NewCentralLoggerWithWriter(cfg, os.Stdout)
}

// NewCentralLoggerWithWriter creates a logger writing to w
func NewCentralLoggerWithWriter(cfg *Config, w io.Writer) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	if w == nil {
		return nil, fmt.Errorf("log writer cannot be nil")
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	tz := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	format := strings.ToLower(cfg.Format)
	switch format {
	case "", FormatText:
		format = FormatText
	case FormatJSON:
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return newCentralLogger(w, level, format, tz), nil
}

// NewDiscardLogger returns a Logger that drops everything. Intended for tests.
func NewDiscardLogger() Logger {
	return newCentralLogger(io.Discard, slog.LevelError+4, FormatText, time.UTC).Module("")
}

func newCentralLogger(w io.Writer, level slog.Level, format string, tz *time.Location) *CentralLogger {
	lv := new(slog.LevelVar)
	lv.Set(level)

	opts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().In(tz).Format("2006-01-02T15:04:05.000Z07:00"))
			}
			return a
		},
	}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return &CentralLogger{handler: h, level: lv, timezone: tz}
}

// SetLevel changes the level of every logger derived from cl
func (cl *CentralLogger) SetLevel(level LogLevel) {
	cl.level.Set(parseSlogLevel(level))
}

// Level returns the current minimum level
func (cl *CentralLogger) Level() slog.Level {
	return cl.level.Level()
}

// Slog exposes the underlying slog.Logger for libraries that want one
func (cl *CentralLogger) Slog() *slog.Logger {
	return slog.New(cl.handler)
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	return &moduleLogger{
		module: name,
		logger: slog.New(cl.handler),
	}
}

// ParseLevel converts a textual level to slog.Level. Both "INFO" and "info"
// are accepted; "warning" is an alias of "warn".
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "critical":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func parseSlogLevel(level LogLevel) slog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// moduleLogger implements Logger for a specific module
type moduleLogger struct {
	module string
	logger *slog.Logger
	fields []Field
}

// Module creates a sub-module logger
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	module := name
	if m.module != "" {
		module = m.module + "." + name
	}
	return &moduleLogger{
		module: module,
		logger: m.logger,
		fields: slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(slog.LevelDebug, msg, fields...) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(slog.LevelInfo, msg, fields...) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(slog.LevelWarn, msg, fields...) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(slog.LevelError, msg, fields...) }

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(parseSlogLevel(level), msg, fields...)
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		fields: slices.Concat(m.fields, fields),
	}
}

// WithContext returns a logger with the context's trace ID attached
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	if ctx == nil {
		return m
	}
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

func (m *moduleLogger) log(level slog.Level, msg string, fields ...Field) {
	if m == nil || !m.logger.Enabled(context.Background(), level) {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for i := range m.fields {
		attrs = append(attrs, fieldToAttr(m.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}

	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func roundFloat(val float64) float64 {
	return math.Round(val*floatPrecisionRatio) / floatPrecisionRatio
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, roundFloat(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		// slog.Duration renders nanoseconds in JSON
		return slog.String(f.Key, v.Round(time.Microsecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
