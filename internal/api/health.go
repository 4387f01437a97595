package api

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/sunrise-go/internal/logger"
)

// healthTimestampLayout is ISO 8601 local time with microseconds
const healthTimestampLayout = "2006-01-02T15:04:05.000000"

// healthCheck reports liveness and purges stale rate limit entries.
// It never fails.
func (s *Server) healthCheck(c echo.Context) error {
	removed := s.limiter.Cleanup()
	if removed > 0 {
		s.log.Debug("health check purged rate limit entries", logger.Int("removed", removed))
	}

	now := s.now()
	uptime := now.Sub(s.startTime)

	return c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		Timestamp:        now.Local().Format(healthTimestampLayout),
		ActiveRateLimits: s.limiter.Len(),
		Uptime:           uptime.Round(time.Second).String(),
		UptimeSeconds:    uptime.Seconds(),
		MemoryRSSBytes:   processRSS(),
	})
}

// processRSS returns the resident set size of this process, or 0 when the
// platform does not expose it
func processRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return 0
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil || memInfo == nil {
		return 0
	}
	return memInfo.RSS
}
