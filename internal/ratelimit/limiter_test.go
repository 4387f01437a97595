package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock safe for concurrent reads
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingMetrics struct {
	mu      sync.Mutex
	allowed int
	denied  int
	active  int
	cleaned int
}

func (m *countingMetrics) RecordDecision(allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowed {
		m.allowed++
	} else {
		m.denied++
	}
}

func (m *countingMetrics) SetActiveEntries(n int) {
	m.mu.Lock()
	m.active = n
	m.mu.Unlock()
}

func (m *countingMetrics) RecordCleanup(removed int) {
	m.mu.Lock()
	m.cleaned += removed
	m.mu.Unlock()
}

func TestAdmitUpToLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := New(5, WithClock(clock.Now))

	for i := range 5 {
		assert.True(t, l.Admit("10.0.0.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Admit("10.0.0.1"), "request over the limit should be denied")

	count, _, ok := l.Snapshot("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, 5, count, "denied requests must not advance the counter")
}

func TestIdentitiesAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(1, WithClock(newFakeClock().Now))

	assert.True(t, l.Admit("a"))
	assert.False(t, l.Admit("a"))
	assert.True(t, l.Admit("b"))
	assert.Equal(t, 2, l.Len())
}

func TestWindowResetAfterExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := New(2, WithClock(clock.Now))

	require.True(t, l.Admit("ip"))
	require.True(t, l.Admit("ip"))
	require.False(t, l.Admit("ip"))

	// Exactly one window later is still inside the window
	clock.Advance(DefaultWindow)
	assert.False(t, l.Admit("ip"))

	clock.Advance(time.Millisecond)
	assert.True(t, l.Admit("ip"))

	count, start, ok := l.Snapshot("ip")
	require.True(t, ok)
	assert.Equal(t, 1, count)
	assert.Equal(t, clock.Now(), start)
}

func TestCleanupRemovesOnlyStaleEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	metrics := &countingMetrics{}
	l := New(10, WithClock(clock.Now), WithMetrics(metrics))

	l.Admit("old")
	clock.Advance(90 * time.Second)
	l.Admit("recent")

	// old: 120s elapsed, which is not strictly greater than 2 windows
	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, l.Cleanup())
	assert.Equal(t, 2, l.Len())

	clock.Advance(time.Second)
	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Len())

	_, _, ok := l.Snapshot("old")
	assert.False(t, ok)
	_, _, ok = l.Snapshot("recent")
	assert.True(t, ok)

	assert.Equal(t, 1, metrics.cleaned)
	assert.Equal(t, 1, metrics.active)
}

func TestCleanupOnEmptyLimiter(t *testing.T) {
	t.Parallel()
	l := New(1)
	assert.Equal(t, 0, l.Cleanup())
	assert.Equal(t, 0, l.Len())
}

func TestNonPositiveLimitUsesDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultLimit, New(0).Limit())
	assert.Equal(t, DefaultLimit, New(-3).Limit())
	assert.Equal(t, DefaultWindow, New(1).Window())
	assert.Equal(t, time.Second, New(1, WithWindow(time.Second)).Window())
}

func TestMetricsRecordDecisions(t *testing.T) {
	t.Parallel()

	metrics := &countingMetrics{}
	l := New(1, WithClock(newFakeClock().Now), WithMetrics(metrics))
	l.Admit("x")
	l.Admit("x")
	l.Admit("y")

	assert.Equal(t, 2, metrics.allowed)
	assert.Equal(t, 1, metrics.denied)
	assert.Equal(t, 2, metrics.active)
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	const (
		limit   = 50
		workers = 20
		perWork = 10
	)
	l := New(limit, WithClock(newFakeClock().Now))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range workers {
		wg.Go(func() {
			for range perWork {
				if l.Admit("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		})
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
	count, _, ok := l.Snapshot("shared")
	require.True(t, ok)
	assert.Equal(t, limit, count)
}

func TestJanitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := New(1, WithClock(clock.Now))
	for i := range 3 {
		l.Admit(fmt.Sprintf("client-%d", i))
	}
	clock.Advance(3 * DefaultWindow)

	ctx, cancel := context.WithCancel(t.Context())
	done := l.StartJanitor(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestJanitorDisabledWithZeroInterval(t *testing.T) {
	t.Parallel()
	done := New(1).StartJanitor(t.Context(), 0)
	_, open := <-done
	assert.False(t, open)
}
