package gate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/BradenHooton/warden/internal/lockout"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/ratelimit"
	"github.com/BradenHooton/warden/internal/session"
)

// Gate decides, per request, whether the caller may proceed. It owns the
// rate limiter, the login lockout tracker and the session manager, and is
// the only way business handlers mutate their state.
type Gate struct {
	limiter  ratelimit.Limiter
	lockout  lockout.Tracker
	sessions *session.Manager
	clock    clock.Clock
	logger   *slog.Logger

	maintenance atomic.Bool
}

// New creates a new Gate
func New(limiter ratelimit.Limiter, tracker lockout.Tracker, sessions *session.Manager, clk clock.Clock, logger *slog.Logger) *Gate {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Gate{
		limiter:  limiter,
		lockout:  tracker,
		sessions: sessions,
		clock:    clk,
		logger:   logger,
	}
}

// IsRequestAllowed consumes one point for key. Accounting is committed even
// if ctx is cancelled.
func (g *Gate) IsRequestAllowed(ctx context.Context, key string) ratelimit.Decision {
	d, err := g.limiter.Consume(context.WithoutCancel(ctx), key)
	if err != nil {
		// Only a bare primary limiter can fail here; fail open rather than
		// turn a backend outage into a site outage.
		g.logger.Warn("rate limit check failed", slog.String("key", key), slog.Any("error", err))
		return ratelimit.Decision{Allowed: true, Degraded: true}
	}
	return d
}

// IsSessionValid runs the touch-check for sid.
func (g *Gate) IsSessionValid(ctx context.Context, sid string) (session.Decision, error) {
	return g.sessions.TouchCheck(ctx, sid)
}

// CheckLogin reports whether account may attempt a login. A locked account
// must be rejected before any credential comparison.
func (g *Gate) CheckLogin(ctx context.Context, account string) (lockout.State, error) {
	return g.lockout.CheckLock(context.WithoutCancel(ctx), account)
}

// OnLoginFailure counts a failed credential check for account.
func (g *Gate) OnLoginFailure(ctx context.Context, account string) (lockout.State, error) {
	return g.lockout.RecordFailure(context.WithoutCancel(ctx), account)
}

// OnLoginSuccess clears account's failures and opens a session for userID.
func (g *Gate) OnLoginSuccess(ctx context.Context, account, userID string, attrs session.Attributes) (*session.Record, error) {
	if err := g.lockout.RecordSuccess(context.WithoutCancel(ctx), account); err != nil {
		return nil, err
	}
	return g.sessions.Create(ctx, userID, attrs)
}

// OnBan invalidates every session of userID.
func (g *Gate) OnBan(ctx context.Context, userID string, ban models.Ban) error {
	return g.sessions.InvalidateAllForUser(ctx, userID, ban)
}

// OnUnban lets userID open new sessions again.
func (g *Gate) OnUnban(ctx context.Context, userID string) error {
	return g.sessions.Lift(ctx, userID)
}

// OnLogout destroys sid.
func (g *Gate) OnLogout(ctx context.Context, sid string) error {
	return g.sessions.Destroy(ctx, sid)
}

// RefreshSession rewrites the cached user fields of sid.
func (g *Gate) RefreshSession(ctx context.Context, sid string, attrs session.Attributes) (*session.Record, error) {
	return g.sessions.Refresh(ctx, sid, attrs)
}

// SetMaintenance toggles maintenance mode.
func (g *Gate) SetMaintenance(enabled bool) {
	if g.maintenance.Swap(enabled) != enabled {
		g.logger.Info("maintenance mode changed", slog.Bool("enabled", enabled))
	}
}

// Maintenance reports whether maintenance mode is on.
func (g *Gate) Maintenance() bool {
	return g.maintenance.Load()
}
