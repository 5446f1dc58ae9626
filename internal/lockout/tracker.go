package lockout

import (
	"context"
	"time"
)

// Config controls when an account locks and for how long.
type Config struct {
	FailureThreshold int           // failures tolerated before the next one locks
	LockDuration     time.Duration // cool-down once locked
	Retention        time.Duration // how long an unlocked failure count survives without activity
}

// State is the observable lock state of an account.
type State struct {
	Locked   bool
	Until    time.Time
	Failures int
}

// Tracker counts failed logins per account and locks accounts that exceed
// the threshold. Mutations for one account are serialized.
type Tracker interface {
	CheckLock(ctx context.Context, account string) (State, error)
	RecordFailure(ctx context.Context, account string) (State, error)
	RecordSuccess(ctx context.Context, account string) error
}

type record struct {
	failures    int
	lockedUntil time.Time
	lastFailure time.Time
}

func (r *record) state() State {
	return State{
		Locked:   !r.lockedUntil.IsZero(),
		Until:    r.lockedUntil,
		Failures: r.failures,
	}
}

// lockExpired reports whether r was locked and the lock has run out at now.
func (r *record) lockExpired(now time.Time) bool {
	return !r.lockedUntil.IsZero() && !now.Before(r.lockedUntil)
}

// fail applies one failed credential check to an unlocked record.
func (r *record) fail(cfg Config, now time.Time) {
	if r.failures >= cfg.FailureThreshold {
		r.lockedUntil = now.Add(cfg.LockDuration)
	}
	r.failures++
	r.lastFailure = now
}

// stale reports whether r can be evicted at now.
func (r *record) stale(cfg Config, now time.Time) bool {
	if !r.lockedUntil.IsZero() {
		return !now.Before(r.lockedUntil)
	}
	return cfg.Retention > 0 && now.Sub(r.lastFailure) >= cfg.Retention
}
