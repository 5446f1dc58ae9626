package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// ModerationGate is the part of the request gate the admin flows call back into.
type ModerationGate interface {
	OnBan(ctx context.Context, userID string, ban models.Ban) error
	OnUnban(ctx context.Context, userID string) error
	SetMaintenance(enabled bool)
	Maintenance() bool
}

// AdminService handles bans and the maintenance switch.
type AdminService struct {
	repo        UserRepository
	gate        ModerationGate
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewAdminService(repo UserRepository, gate ModerationGate, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	return &AdminService{
		repo:        repo,
		gate:        gate,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// BanUser bans userID on behalf of actorID and ends every session the user
// holds. Administrators cannot be banned. Banning a banned user records the
// existing ban again and returns models.ErrAlreadyBanned.
func (s *AdminService) BanUser(ctx context.Context, actorID, userID, reason string) (*models.User, error) {
	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Roles.IsAdmin() {
		return nil, models.ErrCannotBanAdmin
	}
	if target.IsBanned() {
		// An earlier attempt may have persisted the ban and then failed to
		// record it on the ban list.
		if err := s.gate.OnBan(context.WithoutCancel(ctx), userID, *target.Ban); err != nil {
			return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
		}
		return nil, models.ErrAlreadyBanned
	}

	ban := models.Ban{By: actorID, Reason: reason, At: s.now().UTC()}
	banned, err := s.repo.Ban(ctx, userID, ban)
	if err != nil {
		return nil, err
	}

	// The ban is persisted; sessions must not outlive it even if the caller
	// has gone away.
	if err := s.gate.OnBan(context.WithoutCancel(ctx), userID, ban); err != nil {
		return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	s.auditLogger.LogAdminAction(ctx, "user_banned", actorID, userID, reason)
	return banned, nil
}

// UnbanUser lifts the ban on userID. Sessions ended by the ban stay ended.
func (s *AdminService) UnbanUser(ctx context.Context, actorID, userID string) (*models.User, error) {
	unbanned, err := s.repo.Unban(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.OnUnban(context.WithoutCancel(ctx), userID); err != nil {
		return nil, fmt.Errorf("failed to lift ban: %w", err)
	}

	s.auditLogger.LogAdminAction(ctx, "user_unbanned", actorID, userID, "")
	return unbanned, nil
}

// SetMaintenance switches maintenance mode and reports whether it changed.
func (s *AdminService) SetMaintenance(ctx context.Context, actorID string, enabled bool) bool {
	changed := s.gate.Maintenance() != enabled
	s.gate.SetMaintenance(enabled)

	if changed {
		event := "maintenance_disabled"
		if enabled {
			event = "maintenance_enabled"
		}
		s.auditLogger.LogAdminAction(ctx, event, actorID, "", "")
	}
	return changed
}
