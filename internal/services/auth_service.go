package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/lockout"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// UserRepository defines the persistence operations the services need
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Ban(ctx context.Context, id string, ban models.Ban) (*models.User, error)
	Unban(ctx context.Context, id string) (*models.User, error)
	CountAdministrators(ctx context.Context) (int, error)
}

// LoginGate is the part of the request gate the login flow calls back into
type LoginGate interface {
	CheckLogin(ctx context.Context, account string) (lockout.State, error)
	OnLoginFailure(ctx context.Context, account string) (lockout.State, error)
	OnLoginSuccess(ctx context.Context, account, userID string, attrs session.Attributes) (*session.Record, error)
	OnLogout(ctx context.Context, sid string) error
	RefreshSession(ctx context.Context, sid string, attrs session.Attributes) (*session.Record, error)
}

// AuthService handles login and logout
type AuthService struct {
	repo        UserRepository
	gate        LoginGate
	hasher      *pkgauth.Hasher
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. timing may be nil.
func NewAuthService(repo UserRepository, gate LoginGate, hasher *pkgauth.Hasher, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		gate:        gate,
		hasher:      hasher,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// lockoutAccount is the tracker key for a login. Known users are keyed by
// id so email and username share one counter.
func lockoutAccount(user *models.User, login string) string {
	if user != nil {
		return user.ID
	}
	return "login:" + strings.ToLower(login)
}

// Login authenticates login/password and opens a session. Locked accounts
// return *models.LockedError without a credential comparison.
func (s *AuthService) Login(ctx context.Context, login, password, ip string) (*session.Record, error) {
	start := time.Now()
	login = strings.TrimSpace(login)

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if errors.Is(err, models.ErrNotFound) {
		user = nil
	}
	account := lockoutAccount(user, login)

	st, err := s.gate.CheckLogin(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to check lockout: %w", err)
	}
	if st.Locked {
		s.auditLogger.LogAuthAttempt(ctx, login, pkglogger.AuditEvent{
			EventType: "login_locked",
			UserID:    userID(user),
			IPAddress: ip,
			Reason:    "account_locked",
		})
		return nil, &models.LockedError{Until: st.Until}
	}

	if user == nil {
		s.hasher.CompareDummy(password)
		return nil, s.fail(ctx, start, account, login, "", ip, "unknown_login")
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, s.fail(ctx, start, account, login, user.ID, ip, "invalid_password")
	}

	if user.IsBanned() {
		s.auditLogger.LogAuthAttempt(ctx, login, pkglogger.AuditEvent{
			EventType: "login_failed",
			UserID:    user.ID,
			IPAddress: ip,
			Reason:    "user_banned",
		})
		return nil, models.ErrUserBanned
	}

	rec, err := s.gate.OnLoginSuccess(ctx, account, user.ID, session.AttributesFromUser(user))
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.auditLogger.LogAuthAttempt(ctx, login, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ip,
		Success:   true,
	})
	return rec, nil
}

// fail records a failed credential check and pads the response time. A
// failure that trips the lock is reported as locked.
func (s *AuthService) fail(ctx context.Context, start time.Time, account, login, uid, ip, reason string) error {
	st, err := s.gate.OnLoginFailure(ctx, account)
	if err != nil {
		// the credential check already failed; report that rather than the tracker
		s.logger.Error("failed to record login failure", slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(ctx, login, pkglogger.AuditEvent{
		EventType: "login_failed",
		UserID:    uid,
		IPAddress: ip,
		Reason:    reason,
	})

	s.timing.WaitFrom(ctx, start)

	if err == nil && st.Locked {
		return &models.LockedError{Until: st.Until}
	}
	return models.ErrInvalidCredentials
}

// Logout destroys sid. Destroying a missing session is not an error.
func (s *AuthService) Logout(ctx context.Context, sid, uid string) error {
	if err := s.gate.OnLogout(ctx, sid); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	s.auditLogger.Log(ctx, "auth", pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    uid,
		Success:   true,
	})
	return nil
}

// RefreshSession reloads uid and rewrites the cached user fields of sid.
// Business flows call it after changing the user so the session does not
// serve stale values until the next login.
func (s *AuthService) RefreshSession(ctx context.Context, sid, uid string) (*session.Record, error) {
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	rec, err := s.gate.RefreshSession(ctx, sid, session.AttributesFromUser(user))
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return rec, nil
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
