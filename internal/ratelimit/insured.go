package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
)

// InsuredConfig controls how the primary backend is called.
type InsuredConfig struct {
	Timeout       time.Duration // bound on each primary call
	RetryInterval time.Duration // how long to skip the primary after a failure
}

// InsuredLimiter consults the shared primary limiter and falls back to a
// process-local insurance limiter with the same budget when the primary
// fails or times out. Backend failures never reach the caller.
type InsuredLimiter struct {
	primary   Limiter
	insurance Limiter
	config    InsuredConfig
	clock     clock.Clock
	logger    *slog.Logger

	// openUntil is the unix-nano instant before which the primary is skipped.
	openUntil atomic.Int64
	degraded  atomic.Bool
}

// NewInsuredLimiter creates a new InsuredLimiter
func NewInsuredLimiter(primary, insurance Limiter, config InsuredConfig, clk clock.Clock, logger *slog.Logger) *InsuredLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if config.Timeout <= 0 {
		config.Timeout = 200 * time.Millisecond
	}
	return &InsuredLimiter{
		primary:   primary,
		insurance: insurance,
		config:    config,
		clock:     clk,
		logger:    logger,
	}
}

// Consume implements Limiter. The returned error is always nil.
//
// The consume runs on a context detached from the caller's cancellation so an
// aborted request still commits its point.
func (l *InsuredLimiter) Consume(ctx context.Context, key string) (Decision, error) {
	ctx = context.WithoutCancel(ctx)

	if l.primary != nil && !l.breakerOpen() {
		callCtx, cancel := context.WithTimeout(ctx, l.config.Timeout)
		d, err := l.primary.Consume(callCtx, key)
		cancel()
		if err == nil {
			l.recovered()
			return d, nil
		}
		l.trip(err)
	}

	d, _ := l.insurance.Consume(ctx, key)
	d.Degraded = true
	return d, nil
}

// Degraded reports whether the insurance limiter is currently answering.
func (l *InsuredLimiter) Degraded() bool {
	return l.degraded.Load()
}

func (l *InsuredLimiter) breakerOpen() bool {
	return l.clock.Now().UnixNano() < l.openUntil.Load()
}

func (l *InsuredLimiter) trip(err error) {
	l.openUntil.Store(l.clock.Now().Add(l.config.RetryInterval).UnixNano())
	if !l.degraded.Swap(true) {
		l.logger.Warn("rate limit backend unavailable, using insurance limiter",
			slog.Any("error", err),
			slog.Duration("retry_in", l.config.RetryInterval))
	}
}

func (l *InsuredLimiter) recovered() {
	if l.degraded.Swap(false) {
		l.logger.Info("rate limit backend recovered")
	}
}
