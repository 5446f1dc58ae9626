package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, email, username, display_name, password_hash, roles, xp, has_avatar,
	verified_at, banned_by, ban_reason, banned_at, created_at, updated_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUserRow handles the nullable ban columns
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var roles int16
	var bannedBy, banReason *string
	var bannedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Username, &user.DisplayName, &user.PasswordHash,
		&roles, &user.XP, &user.HasAvatar, &user.VerifiedAt,
		&bannedBy, &banReason, &bannedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Roles = models.Roles(roles)
	if bannedAt != nil {
		user.Ban = &models.Ban{At: *bannedAt}
		if bannedBy != nil {
			user.Ban.By = *bannedBy
		}
		if banReason != nil {
			user.Ban.Reason = *banReason
		}
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByLogin finds a user by email or username, case-insensitively.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($1) LIMIT 1`
	return scanUserRow(r.pool.QueryRow(ctx, query, login))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Roles == 0 {
		user.Roles = models.RoleMember
	}

	query := `
		INSERT INTO users (id, email, username, display_name, password_hash, roles, xp, has_avatar, verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.DisplayName, user.PasswordHash,
		int16(user.Roles), user.XP, user.HasAvatar, user.VerifiedAt,
		user.CreatedAt, user.UpdatedAt,
	))
}

// Ban records ban on user id. Returns ErrAlreadyBanned if a ban is already set.
func (r *UserRepository) Ban(ctx context.Context, id string, ban models.Ban) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `
		UPDATE users SET banned_by = $2, ban_reason = $3, banned_at = $4, updated_at = NOW()
		WHERE id = $1 AND banned_at IS NULL
		RETURNING ` + userColumns

	var by *string
	if ban.By != "" {
		by = &ban.By
	}

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, id, by, ban.Reason, ban.At))
	if errors.Is(err, models.ErrNotFound) {
		return nil, r.explainMiss(ctx, id, models.ErrAlreadyBanned)
	}
	return user, err
}

// Unban clears the ban on user id. Returns ErrNotBanned if none is set.
func (r *UserRepository) Unban(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `
		UPDATE users SET banned_by = NULL, ban_reason = NULL, banned_at = NULL, updated_at = NOW()
		WHERE id = $1 AND banned_at IS NOT NULL
		RETURNING ` + userColumns

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, r.explainMiss(ctx, id, models.ErrNotBanned)
	}
	return user, err
}

// explainMiss distinguishes a missing user from a conditional update that
// matched no row.
func (r *UserRepository) explainMiss(ctx context.Context, id string, conditionErr error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return conditionErr
}

// CountAdministrators is used by the startup bootstrap.
func (r *UserRepository) CountAdministrators(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE roles & $1 <> 0`, int16(models.RoleAdministrator)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count administrators: %w", err)
	}
	return n, nil
}
