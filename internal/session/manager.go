package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/BradenHooton/warden/internal/models"
)

// Reason explains why a touch-check rejected a session.
type Reason string

const (
	ReasonExpired  Reason = "expired"
	ReasonBanned   Reason = "banned"
	ReasonNotFound Reason = "not_found"
)

// Decision is the outcome of a touch-check.
type Decision struct {
	Valid  bool
	Reason Reason
	Record *Record // set when Valid
}

// Config holds the session lifetime policy.
type Config struct {
	AbsoluteTimeout time.Duration // hard ceiling measured from login
}

// Manager enforces the absolute lifetime and ban invalidation of sessions.
type Manager struct {
	store   Store
	bans    BanList
	sweeper *Sweeper
	config  Config
	clock   clock.Clock
	logger  *slog.Logger
}

// NewManager creates a new Manager. sweeper may be nil, in which case
// banned sessions are only removed by touch-checks.
func NewManager(store Store, bans BanList, sweeper *Sweeper, config Config, clk clock.Clock, logger *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager{
		store:   store,
		bans:    bans,
		sweeper: sweeper,
		config:  config,
		clock:   clk,
		logger:  logger,
	}
}

// Create starts a new session for userID.
func (m *Manager) Create(ctx context.Context, userID string, attrs Attributes) (*Record, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        id,
		UserID:    userID,
		CreatedAt: m.clock.Now(),
	}
	rec.apply(attrs)

	if err := m.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// TouchCheck validates sid for the current request. A banned or expired
// session is destroyed before the decision is returned.
func (m *Manager) TouchCheck(ctx context.Context, sid string) (Decision, error) {
	rec, err := m.store.Get(ctx, sid)
	if errors.Is(err, ErrNotFound) {
		return Decision{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	banned := rec.Banned != nil
	if !banned {
		entry, err := m.bans.Lookup(ctx, rec.UserID)
		if err != nil {
			return Decision{}, err
		}
		banned = entry.Rejects(rec)
	}
	if banned {
		if err := m.store.Destroy(ctx, sid); err != nil {
			return Decision{}, err
		}
		return Decision{Reason: ReasonBanned}, nil
	}

	if m.config.AbsoluteTimeout > 0 && m.clock.Now().Sub(rec.CreatedAt) > m.config.AbsoluteTimeout {
		if err := m.store.Destroy(ctx, sid); err != nil {
			return Decision{}, err
		}
		return Decision{Reason: ReasonExpired}, nil
	}

	return Decision{Valid: true, Record: rec}, nil
}

// Destroy ends a session. Ending an unknown session succeeds.
func (m *Manager) Destroy(ctx context.Context, sid string) error {
	return m.store.Destroy(ctx, sid)
}

// InvalidateAllForUser bans userID for every open session. The ban is
// recorded before returning; the sessions themselves are removed by the
// sweeper in the background.
func (m *Manager) InvalidateAllForUser(ctx context.Context, userID string, ban models.Ban) error {
	if ban.At.IsZero() {
		ban.At = m.clock.Now()
	}
	if err := m.bans.Add(ctx, userID, ban); err != nil {
		return fmt.Errorf("failed to record ban: %w", err)
	}
	if !m.sweeper.Enqueue(UserBanned{UserID: userID}) {
		m.logger.Warn("session sweep not scheduled", slog.String("user_id", userID))
	}
	return nil
}

// Lift marks the user's ban as lifted. Sessions opened after the lift pass
// touch-checks; sessions from before the ban never do.
func (m *Manager) Lift(ctx context.Context, userID string) error {
	if err := m.bans.Lift(ctx, userID); err != nil {
		return fmt.Errorf("failed to lift ban: %w", err)
	}
	return nil
}

// Refresh rewrites the cached user fields of sid from attrs. Identity and
// login time are kept. A session destroyed concurrently stays destroyed and
// ErrNotFound is returned.
func (m *Manager) Refresh(ctx context.Context, sid string, attrs Attributes) (*Record, error) {
	rec, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}

	rec.apply(attrs)
	if err := m.store.Replace(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
