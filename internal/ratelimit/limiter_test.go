package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioConfig = Config{Points: 2, Duration: 10 * time.Second, BlockDuration: 5 * time.Second}

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
}

// assertScenario runs the three-consume scenario against any Limiter.
func assertScenario(t *testing.T, l Limiter, clk *clock.Fake) {
	t.Helper()
	ctx := context.Background()

	d1, err := l.Consume(ctx, "A")
	require.NoError(t, err)
	clk.Advance(300 * time.Millisecond)
	d2, err := l.Consume(ctx, "A")
	require.NoError(t, err)
	clk.Advance(300 * time.Millisecond)
	d3, err := l.Consume(ctx, "A")
	require.NoError(t, err)

	assert.True(t, d1.Allowed)
	assert.Equal(t, 1, d1.Remaining)
	assert.True(t, d2.Allowed)
	assert.Equal(t, 0, d2.Remaining)
	assert.False(t, d3.Allowed)
	assert.Equal(t, int64(5000), d3.ResetMillis())
	assert.Equal(t, 5, d3.RetryAfterSeconds())
}

func TestMemoryLimiter_Scenario(t *testing.T) {
	clk := newFakeClock()
	assertScenario(t, NewMemoryLimiter(scenarioConfig, clk), clk)
}

func TestMemoryLimiter_RetriesDuringBlockDoNotMoveIt(t *testing.T) {
	clk := newFakeClock()
	l := NewMemoryLimiter(scenarioConfig, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = l.Consume(ctx, "A")
	}

	clk.Advance(2 * time.Second)
	d, _ := l.Consume(ctx, "A")
	assert.False(t, d.Allowed)
	assert.Equal(t, 3*time.Second, d.ResetAfter)

	clk.Advance(2 * time.Second)
	d, _ = l.Consume(ctx, "A")
	assert.False(t, d.Allowed)
	assert.Equal(t, 1*time.Second, d.ResetAfter)

	clk.Advance(1 * time.Second)
	d, _ = l.Consume(ctx, "A")
	assert.True(t, d.Allowed, "block must lift exactly at blockedUntil")
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	clk := newFakeClock()
	l := NewMemoryLimiter(scenarioConfig, clk)
	ctx := context.Background()

	_, _ = l.Consume(ctx, "A")
	d, _ := l.Consume(ctx, "A")
	assert.Equal(t, 0, d.Remaining)

	clk.Advance(10 * time.Second)
	d, _ = l.Consume(ctx, "A")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, 10*time.Second, d.ResetAfter)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	clk := newFakeClock()
	l := NewMemoryLimiter(scenarioConfig, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = l.Consume(ctx, "A")
	}
	d, _ := l.Consume(ctx, "B")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryLimiter_ConcurrentConsumeLosesNoUpdates(t *testing.T) {
	clk := newFakeClock()
	cfg := Config{Points: 50, Duration: time.Minute, BlockDuration: time.Minute}
	l := NewMemoryLimiter(cfg, clk)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Consume(context.Background(), "hot")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clk := newFakeClock()
	l := NewMemoryLimiter(scenarioConfig, clk)
	ctx := context.Background()

	_, _ = l.Consume(ctx, "stale")
	for i := 0; i < 3; i++ {
		_, _ = l.Consume(ctx, "blocked")
	}
	require.Equal(t, 2, l.Len())

	clk.Advance(4 * time.Second)
	_, _ = l.Consume(ctx, "fresh")
	assert.Equal(t, 0, l.Sweep(clk.Now()))

	clk.Advance(6 * time.Second)
	assert.Equal(t, 2, l.Sweep(clk.Now()))
	assert.Equal(t, 1, l.Len())
}

func TestDecision_RetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, Decision{ResetAfter: 0}.RetryAfterSeconds())
	assert.Equal(t, 1, Decision{ResetAfter: 200 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 2, Decision{ResetAfter: 1001 * time.Millisecond}.RetryAfterSeconds())
}
