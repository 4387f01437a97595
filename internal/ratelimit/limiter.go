// Package ratelimit implements a per-client fixed-window request counter.
//
// Each client identity owns at most one window entry. The first request of
// a window starts it; requests beyond the limit inside the window are
// denied without being counted; a request arriving after the window has
// elapsed starts a fresh window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/sunrise-go/internal/logger"
)

const (
	// DefaultLimit is the number of admitted requests per window
	DefaultLimit = 60
	// DefaultWindow is the window length
	DefaultWindow = 60 * time.Second
)

// MetricsRecorder receives limiter events. Implemented by
// observability/metrics.RateLimitMetrics.
type MetricsRecorder interface {
	RecordDecision(allowed bool)
	SetActiveEntries(n int)
	RecordCleanup(removed int)
}

// entry is one client's window. Only mutated while Limiter.mu is held.
type entry struct {
	count       int
	windowStart time.Time
}

// Limiter decides whether a client may proceed. It is safe for concurrent use.
type Limiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	log     logger.Logger
	metrics MetricsRecorder

	// mu serializes the read-decide-write sequence of Admit and Cleanup;
	// the cache's own lock only covers single operations.
	mu      sync.Mutex
	entries *cache.Cache
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithWindow overrides the window length
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLogger sets the logger used for janitor and deny events
func WithLogger(log logger.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New creates a limiter admitting limit requests per window per identity.
// A non-positive limit falls back to DefaultLimit.
func New(limit int, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		limit:   limit,
		window:  DefaultWindow,
		now:     time.Now,
		log:     logger.NewDiscardLogger(),
		entries: cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured per-window limit
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length
func (l *Limiter) Window() time.Duration { return l.window }

// Admit records a request from identity and reports whether it may proceed.
// Denied requests do not advance the counter.
func (l *Limiter) Admit(identity string) bool {
	now := l.now()

	l.mu.Lock()
	allowed := l.admitLocked(identity, now)
	active := l.entries.ItemCount()
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordDecision(allowed)
		l.metrics.SetActiveEntries(active)
	}
	return allowed
}

func (l *Limiter) admitLocked(identity string, now time.Time) bool {
	v, found := l.entries.Get(identity)
	if !found {
		l.entries.Set(identity, &entry{count: 1, windowStart: now}, cache.NoExpiration)
		return true
	}

	e, ok := v.(*entry)
	if !ok || now.Sub(e.windowStart) > l.window {
		l.entries.Set(identity, &entry{count: 1, windowStart: now}, cache.NoExpiration)
		return true
	}

	if e.count >= l.limit {
		return false
	}

	e.count++
	return true
}

// Cleanup removes entries whose window started more than two windows ago
// and returns how many were removed.
func (l *Limiter) Cleanup() int {
	now := l.now()
	staleAfter := 2 * l.window

	l.mu.Lock()
	removed := 0
	for identity, item := range l.entries.Items() {
		e, ok := item.Object.(*entry)
		if !ok || now.Sub(e.windowStart) > staleAfter {
			l.entries.Delete(identity)
			removed++
		}
	}
	active := l.entries.ItemCount()
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordCleanup(removed)
		l.metrics.SetActiveEntries(active)
	}
	return removed
}

// Len returns the number of tracked identities
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.ItemCount()
}

// Snapshot returns the window state of identity
func (l *Limiter) Snapshot(identity string) (count int, windowStart time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, found := l.entries.Get(identity)
	if !found {
		return 0, time.Time{}, false
	}
	e, isEntry := v.(*entry)
	if !isEntry {
		return 0, time.Time{}, false
	}
	return e.count, e.windowStart, true
}

// StartJanitor runs Cleanup every interval until ctx is cancelled. The
// returned channel is closed once the goroutine has exited.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Cleanup(); removed > 0 {
					l.log.Debug("rate limit entries expired",
						logger.Int("removed", removed),
						logger.Int("active", l.Len()))
				}
			}
		}
	}()
	return done
}
