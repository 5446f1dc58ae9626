package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
)

// MemoryLimiter is a process-local limiter. It serves as the insurance
// limiter when the shared backend is unreachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
	config  Config
	clock   clock.Clock
}

// NewMemoryLimiter creates a new MemoryLimiter
func NewMemoryLimiter(config Config, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryLimiter{
		buckets: make(map[string]*Bucket),
		config:  config,
		clock:   clk,
	}
}

// Consume implements Limiter. It never fails.
func (l *MemoryLimiter) Consume(_ context.Context, key string) (Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &Bucket{}
		l.buckets[key] = b
	}
	return consume(b, l.config, now), nil
}

// Sweep drops buckets whose window and block have both elapsed.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.expired(l.config, now) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Name identifies the limiter in cleanup logs.
func (l *MemoryLimiter) Name() string { return "rate_limit_buckets" }

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
