package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/lockout"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetByLoginFunc          func(ctx context.Context, login string) (*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	BanFunc                 func(ctx context.Context, id string, ban models.Ban) (*models.User, error)
	UnbanFunc               func(ctx context.Context, id string) (*models.User, error)
	CountAdministratorsFunc func(ctx context.Context) (int, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.GetByLoginFunc != nil {
		return m.GetByLoginFunc(ctx, login)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Ban(ctx context.Context, id string, ban models.Ban) (*models.User, error) {
	if m.BanFunc != nil {
		return m.BanFunc(ctx, id, ban)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Unban(ctx context.Context, id string) (*models.User, error) {
	if m.UnbanFunc != nil {
		return m.UnbanFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) CountAdministrators(ctx context.Context) (int, error) {
	if m.CountAdministratorsFunc != nil {
		return m.CountAdministratorsFunc(ctx)
	}
	return 0, nil
}

// MockGate implements LoginGate and ModerationGate for testing
type MockGate struct {
	CheckLoginFunc     func(ctx context.Context, account string) (lockout.State, error)
	OnLoginFailureFunc func(ctx context.Context, account string) (lockout.State, error)
	OnLoginSuccessFunc func(ctx context.Context, account, userID string, attrs session.Attributes) (*session.Record, error)
	OnLogoutFunc       func(ctx context.Context, sid string) error
	RefreshSessionFunc func(ctx context.Context, sid string, attrs session.Attributes) (*session.Record, error)
	OnBanFunc          func(ctx context.Context, userID string, ban models.Ban) error
	OnUnbanFunc        func(ctx context.Context, userID string) error

	Failures    []string
	maintenance bool
}

func (m *MockGate) CheckLogin(ctx context.Context, account string) (lockout.State, error) {
	if m.CheckLoginFunc != nil {
		return m.CheckLoginFunc(ctx, account)
	}
	return lockout.State{}, nil
}

func (m *MockGate) OnLoginFailure(ctx context.Context, account string) (lockout.State, error) {
	m.Failures = append(m.Failures, account)
	if m.OnLoginFailureFunc != nil {
		return m.OnLoginFailureFunc(ctx, account)
	}
	return lockout.State{Failures: len(m.Failures)}, nil
}

func (m *MockGate) OnLoginSuccess(ctx context.Context, account, userID string, attrs session.Attributes) (*session.Record, error) {
	if m.OnLoginSuccessFunc != nil {
		return m.OnLoginSuccessFunc(ctx, account, userID, attrs)
	}
	return &session.Record{ID: "sid-1", UserID: userID, Username: attrs.Username, Roles: attrs.Roles}, nil
}

func (m *MockGate) OnLogout(ctx context.Context, sid string) error {
	if m.OnLogoutFunc != nil {
		return m.OnLogoutFunc(ctx, sid)
	}
	return nil
}

func (m *MockGate) RefreshSession(ctx context.Context, sid string, attrs session.Attributes) (*session.Record, error) {
	if m.RefreshSessionFunc != nil {
		return m.RefreshSessionFunc(ctx, sid, attrs)
	}
	return nil, session.ErrNotFound
}

func (m *MockGate) OnBan(ctx context.Context, userID string, ban models.Ban) error {
	if m.OnBanFunc != nil {
		return m.OnBanFunc(ctx, userID, ban)
	}
	return nil
}

func (m *MockGate) OnUnban(ctx context.Context, userID string) error {
	if m.OnUnbanFunc != nil {
		return m.OnUnbanFunc(ctx, userID)
	}
	return nil
}

func (m *MockGate) SetMaintenance(enabled bool) { m.maintenance = enabled }

func (m *MockGate) Maintenance() bool { return m.maintenance }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testHasher() *pkgauth.Hasher {
	return pkgauth.NewHasher(bcrypt.MinCost)
}

// NewTestUser builds a member whose password is password.
func NewTestUser(id, username, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        username + "@example.com",
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Roles:        models.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
