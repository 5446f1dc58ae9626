package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/BradenHooton/warden/internal/gate"
	"github.com/BradenHooton/warden/internal/lockout"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/ratelimit"
	"github.com/BradenHooton/warden/internal/session"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminService(repo UserRepository, g ModerationGate) *AdminService {
	logger := discardLogger()
	return NewAdminService(repo, g, logger, pkglogger.NewAuditLogger(logger))
}

func TestAdminService_BanUser(t *testing.T) {
	target := NewTestUser("user-1", "bob", "pw")
	var persisted, invalidated models.Ban

	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) { return target, nil },
		BanFunc: func(ctx context.Context, id string, ban models.Ban) (*models.User, error) {
			persisted = ban
			banned := *target
			banned.Ban = &ban
			return &banned, nil
		},
	}
	g := &MockGate{OnBanFunc: func(ctx context.Context, userID string, ban models.Ban) error {
		assert.Equal(t, "user-1", userID)
		invalidated = ban
		return nil
	}}

	user, err := newAdminService(repo, g).BanUser(context.Background(), "admin-1", "user-1", "spam")

	require.NoError(t, err)
	require.NotNil(t, user.Ban)
	assert.Equal(t, "admin-1", persisted.By)
	assert.Equal(t, "spam", persisted.Reason)
	assert.False(t, persisted.At.IsZero())
	assert.Equal(t, persisted, invalidated, "sessions are invalidated with the persisted ban")
}

func TestAdminService_BanUser_Refusals(t *testing.T) {
	admin := NewTestUser("admin-2", "root", "pw")
	admin.Roles = models.RoleMember | models.RoleAdministrator
	tests := []struct {
		name    string
		target  *models.User
		lookup  error
		wantErr error
	}{
		{"administrator", admin, nil, models.ErrCannotBanAdmin},
		{"missing user", nil, models.ErrNotFound, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockUserRepository{
				GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) { return tt.target, tt.lookup },
			}
			g := &MockGate{OnBanFunc: func(ctx context.Context, userID string, ban models.Ban) error {
				t.Fatal("no sessions may be touched")
				return nil
			}}

			_, err := newAdminService(repo, g).BanUser(context.Background(), "admin-1", "x", "reason")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdminService_BanUser_GateFailure(t *testing.T) {
	target := NewTestUser("user-1", "bob", "pw")
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) { return target, nil },
		BanFunc: func(ctx context.Context, id string, ban models.Ban) (*models.User, error) {
			return target, nil
		},
	}
	g := &MockGate{OnBanFunc: func(ctx context.Context, userID string, ban models.Ban) error {
		return errors.New("redis down")
	}}

	_, err := newAdminService(repo, g).BanUser(context.Background(), "admin-1", "user-1", "spam")
	assert.Error(t, err)
}

func TestAdminService_BanUser_AlreadyBannedRecordsAgain(t *testing.T) {
	target := NewTestUser("user-2", "carol", "pw")
	target.Ban = &models.Ban{By: "admin-0", Reason: "earlier"}

	var recorded []models.Ban
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) { return target, nil },
	}
	g := &MockGate{OnBanFunc: func(ctx context.Context, userID string, ban models.Ban) error {
		recorded = append(recorded, ban)
		return nil
	}}

	_, err := newAdminService(repo, g).BanUser(context.Background(), "admin-1", "user-2", "again")
	assert.ErrorIs(t, err, models.ErrAlreadyBanned)
	require.Len(t, recorded, 1)
	assert.Equal(t, *target.Ban, recorded[0], "the persisted ban is kept")
}

// flakyBanList fails its first Add.
type flakyBanList struct {
	session.BanList
	failed bool
}

func (f *flakyBanList) Add(ctx context.Context, userID string, ban models.Ban) error {
	if !f.failed {
		f.failed = true
		return errors.New("redis down")
	}
	return f.BanList.Add(ctx, userID, ban)
}

func TestAdminService_BanUser_RetryAfterBanListFailure(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	clk := clock.NewFake(time.Now())

	manager := session.NewManager(session.NewMemoryStore(time.Hour, clk), &flakyBanList{BanList: session.NewMemoryBanList()},
		nil, session.Config{AbsoluteTimeout: 24 * time.Hour}, clk, logger)
	g := gate.New(ratelimit.NewMemoryLimiter(ratelimit.Config{Points: 100, Duration: time.Second}, clk),
		lockout.NewMemoryTracker(lockout.Config{FailureThreshold: 3, LockDuration: time.Minute}, clk), manager, clk, logger)

	target := NewTestUser("user-1", "bob", "pw")
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) { return target, nil },
		BanFunc: func(ctx context.Context, id string, ban models.Ban) (*models.User, error) {
			target.Ban = &ban
			return target, nil
		},
	}
	rec, err := manager.Create(ctx, "user-1", session.AttributesFromUser(target))
	require.NoError(t, err)
	clk.Advance(time.Second)

	svc := newAdminService(repo, g)
	_, err = svc.BanUser(ctx, "admin-1", "user-1", "spam")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "failed to invalidate sessions: failed to invalidate sessions")

	_, err = svc.BanUser(ctx, "admin-1", "user-1", "spam")
	assert.ErrorIs(t, err, models.ErrAlreadyBanned)

	d, err := g.IsSessionValid(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, d.Valid)
	assert.Equal(t, session.ReasonBanned, d.Reason)
}

func TestAdminService_UnbanUser(t *testing.T) {
	var lifted string
	repo := &MockUserRepository{
		UnbanFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "bob", "pw"), nil
		},
	}
	g := &MockGate{OnUnbanFunc: func(ctx context.Context, userID string) error {
		lifted = userID
		return nil
	}}

	user, err := newAdminService(repo, g).UnbanUser(context.Background(), "admin-1", "user-1")

	require.NoError(t, err)
	assert.Nil(t, user.Ban)
	assert.Equal(t, "user-1", lifted)
}

func TestAdminService_UnbanUser_NotBanned(t *testing.T) {
	repo := &MockUserRepository{
		UnbanFunc: func(ctx context.Context, id string) (*models.User, error) { return nil, models.ErrNotBanned },
	}
	g := &MockGate{OnUnbanFunc: func(ctx context.Context, userID string) error {
		t.Fatal("ban list must not change")
		return nil
	}}

	_, err := newAdminService(repo, g).UnbanUser(context.Background(), "admin-1", "user-1")
	assert.ErrorIs(t, err, models.ErrNotBanned)
}

func TestAdminService_SetMaintenance(t *testing.T) {
	g := &MockGate{}
	svc := newAdminService(&MockUserRepository{}, g)

	assert.True(t, svc.SetMaintenance(context.Background(), "admin-1", true))
	assert.True(t, g.Maintenance())
	assert.False(t, svc.SetMaintenance(context.Background(), "admin-1", true))
	assert.True(t, svc.SetMaintenance(context.Background(), "admin-1", false))
	assert.False(t, g.Maintenance())
}
