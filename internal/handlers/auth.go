package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/BradenHooton/warden/pkg/logger"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, login, password, ip string) (*session.Record, error)
	Logout(ctx context.Context, sid, userID string) error
	RefreshSession(ctx context.Context, sid, userID string) (*session.Record, error)
}

// AuthHandler handles login, logout and the current-session view
type AuthHandler struct {
	service  AuthServiceInterface
	tokens   *auth.TokenManager
	cookie   auth.CookieConfig
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, tokens *auth.TokenManager, cookie auth.CookieConfig, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		tokens:   tokens,
		cookie:   cookie,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// SessionResponse is the client view of the current session
type SessionResponse struct {
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Roles       []string    `json:"roles"`
	Verified    bool        `json:"verified"`
	XP          int         `json:"xp"`
	HasAvatar   bool        `json:"has_avatar"`
	LoggedInAt  time.Time   `json:"logged_in_at"`
	Ban         *models.Ban `json:"ban,omitempty"`
}

func toSessionResponse(rec *session.Record) SessionResponse {
	return SessionResponse{
		UserID:      rec.UserID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		Roles:       rec.Roles.Names(),
		Verified:    rec.VerifiedAt != nil,
		XP:          rec.XP,
		HasAvatar:   rec.HasAvatar,
		LoggedInAt:  rec.CreatedAt,
		Ban:         rec.Banned,
	}
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)
	rec, err := h.service.Login(r.Context(), req.Login, req.Password, ip)
	if err != nil {
		var locked *models.LockedError
		switch {
		case errors.As(err, &locked):
			pkghttp.WriteErrorWithData(w, http.StatusBadRequest, "login_locked",
				"Too many failed attempts, try again later",
				map[string]any{"locked_until": locked.Until.UnixMilli()})
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteError(w, http.StatusBadRequest, "login_invalid", "Invalid login or password")
		case errors.Is(err, models.ErrUserBanned):
			pkghttp.WriteUserBanned(w)
		default:
			logger.ReportError(r.Context(), h.logger, "login failed", err)
			pkghttp.WriteInternalError(w)
		}
		return
	}

	token, err := h.tokens.Generate(rec.ID, rec.UserID)
	if err != nil {
		logger.ReportError(r.Context(), h.logger, "failed to sign session cookie", err)
		pkghttp.WriteInternalError(w)
		return
	}

	auth.SetSessionCookie(w, token, h.cookie)
	pkghttp.WriteMessage(w, "login_success", toSessionResponse(rec))
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	rec := auth.GetSessionFromRequest(r)
	if rec == nil {
		pkghttp.WriteNotLoggedIn(w)
		return
	}

	if err := h.service.Logout(r.Context(), rec.ID, rec.UserID); err != nil {
		logger.ReportError(r.Context(), h.logger, "logout failed", err)
		pkghttp.WriteInternalError(w)
		return
	}

	auth.ClearSessionCookie(w, h.cookie)
	pkghttp.WriteMessage(w, "logout_success", nil)
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	rec := auth.GetSessionFromRequest(r)
	if rec == nil {
		pkghttp.WriteNotLoggedIn(w)
		return
	}
	pkghttp.WriteMessage(w, "session", toSessionResponse(rec))
}

// Refresh handles POST /me/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	rec := auth.GetSessionFromRequest(r)
	if rec == nil {
		pkghttp.WriteNotLoggedIn(w)
		return
	}

	updated, err := h.service.RefreshSession(r.Context(), rec.ID, rec.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotLoggedIn(w)
			return
		}
		logger.ReportError(r.Context(), h.logger, "session refresh failed", err)
		pkghttp.WriteInternalError(w)
		return
	}
	pkghttp.WriteMessage(w, "session", toSessionResponse(updated))
}
