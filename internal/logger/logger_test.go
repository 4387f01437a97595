package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sunrise-go/internal/logger"
)

func newJSONLogger(t *testing.T, level string) (*logger.CentralLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cl, err := logger.NewCentralLoggerWithWriter(&logger.Config{Level: level, Format: logger.FormatJSON, Timezone: "UTC"}, buf)
	require.NoError(t, err)
	return cl, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  int
	}{
		{"DEBUG", 4},
		{"INFO", 3},
		{"warning", 2},
		{"error", 1},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			cl, buf := newJSONLogger(t, tt.level)
			log := cl.Module("test")
			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")
			assert.Len(t, decodeLines(t, buf), tt.want)
		})
	}
}

func TestUnknownLevelRejected(t *testing.T) {
	t.Parallel()
	_, err := logger.NewCentralLoggerWithWriter(&logger.Config{Level: "chatty"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestModuleFieldsAndTrace(t *testing.T) {
	t.Parallel()
	cl, buf := newJSONLogger(t, "debug")

	log := cl.Module("api").Module("http").With(logger.String("request_id", "req-1"))
	ctx := logger.WithTraceID(t.Context(), "trace-42")
	log.WithContext(ctx).Info("handled",
		logger.Int("status", 200),
		logger.Float64("latitude", 40.712812345),
		logger.Duration("latency", 1500*time.Microsecond),
		logger.Error(errors.New("boom")))

	recs := decodeLines(t, buf)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "api.http", rec["module"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "trace-42", rec["trace_id"])
	assert.InDelta(t, 200, rec["status"], 0)
	assert.InDelta(t, 40.713, rec["latitude"], 1e-9)
	assert.Equal(t, "1.5ms", rec["latency"])
	assert.Equal(t, "boom", rec["error"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()
	cl, buf := newJSONLogger(t, "info")

	parent := cl.Module("p")
	_ = parent.With(logger.String("child", "yes"))
	parent.Info("parent")

	recs := decodeLines(t, buf)
	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0], "child")
}

func TestSetLevelAtRuntime(t *testing.T) {
	t.Parallel()
	cl, buf := newJSONLogger(t, "info")
	log := cl.Module("rt")

	log.Debug("hidden")
	cl.SetLevel(logger.LogLevelDebug)
	log.Debug("shown")

	recs := decodeLines(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "shown", recs[0]["msg"])
}

func TestTextFormatDefault(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	cl, err := logger.NewCentralLoggerWithWriter(&logger.Config{}, buf)
	require.NoError(t, err)

	cl.Module("main").Info("started", logger.Int("port", 5000))
	out := buf.String()
	assert.Contains(t, out, "module=main")
	assert.Contains(t, out, "port=5000")
}

func TestDiscardLogger(t *testing.T) {
	t.Parallel()
	log := logger.NewDiscardLogger()
	require.NotNil(t, log)
	log.Error("nothing happens")
}
