package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps any failure of the shared key store backend.
var ErrBackendUnavailable = errors.New("rate limit backend unavailable")

// Config holds the per-key budget.
type Config struct {
	Points        int           // requests allowed per window
	Duration      time.Duration // window length
	BlockDuration time.Duration // penalty once the budget is exhausted
}

// Decision is the outcome of a single consume call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration // time until the window resets or the block lifts
	Degraded   bool          // answered by the insurance limiter
}

// ResetMillis returns ResetAfter in whole milliseconds.
func (d Decision) ResetMillis() int64 {
	return d.ResetAfter.Milliseconds()
}

// RetryAfterSeconds returns ResetAfter rounded up to whole seconds, at least 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.ResetAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter consumes one point for key.
type Limiter interface {
	Consume(ctx context.Context, key string) (Decision, error)
}

// Bucket is the per-key counter-and-window state.
type Bucket struct {
	Used         int
	WindowStart  time.Time
	BlockedUntil time.Time
}

// consume applies one point to b at now. b is mutated in place.
func consume(b *Bucket, cfg Config, now time.Time) Decision {
	if now.Before(b.BlockedUntil) {
		return Decision{Allowed: false, Limit: cfg.Points, ResetAfter: b.BlockedUntil.Sub(now)}
	}

	// An elapsed block or an elapsed window both start a fresh window.
	if !b.BlockedUntil.IsZero() || b.WindowStart.IsZero() || now.Sub(b.WindowStart) >= cfg.Duration {
		b.Used = 0
		b.WindowStart = now
		b.BlockedUntil = time.Time{}
	}

	b.Used++
	if b.Used > cfg.Points {
		b.BlockedUntil = now.Add(cfg.BlockDuration)
		return Decision{Allowed: false, Limit: cfg.Points, ResetAfter: cfg.BlockDuration}
	}

	return Decision{
		Allowed:    true,
		Limit:      cfg.Points,
		Remaining:  cfg.Points - b.Used,
		ResetAfter: b.WindowStart.Add(cfg.Duration).Sub(now),
	}
}

// expired reports whether b carries no state worth keeping at now.
func (b *Bucket) expired(cfg Config, now time.Time) bool {
	if now.Before(b.BlockedUntil) {
		return false
	}
	return now.Sub(b.WindowStart) >= cfg.Duration || !b.BlockedUntil.IsZero()
}
