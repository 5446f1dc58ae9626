package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// UserService handles account provisioning.
type UserService struct {
	repo   UserRepository
	hasher *pkgauth.Hasher
	logger *slog.Logger
}

func NewUserService(repo UserRepository, hasher *pkgauth.Hasher, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// CreateUser validates password, hashes it and stores the user.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)
	if user.Email == "" || user.Username == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.String("user_id", created.ID), slog.String("roles", created.Roles.String()))
	return created, nil
}

// BootstrapAdmin creates a verified administrator when none exists yet.
// It is a no-op if email or password is empty.
func (s *UserService) BootstrapAdmin(ctx context.Context, email, username, password string) error {
	if email == "" || password == "" {
		return nil
	}

	n, err := s.repo.CountAdministrators(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	verified := time.Now().UTC()
	_, err = s.CreateUser(ctx, &models.User{
		Email:       email,
		Username:    username,
		DisplayName: username,
		Roles:       models.RoleMember | models.RoleModerator | models.RoleAdministrator,
		VerifiedAt:  &verified,
	}, password)
	if errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("admin bootstrap: %s or %s already belongs to a non-admin account", pkglogger.SanitizedEmail(email), username)
	}
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}

	s.logger.Info("bootstrap administrator created")
	return nil
}
