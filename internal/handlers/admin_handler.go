package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the interface for moderation business logic
type AdminServiceInterface interface {
	BanUser(ctx context.Context, actorID, userID, reason string) (*models.User, error)
	UnbanUser(ctx context.Context, actorID, userID string) (*models.User, error)
	SetMaintenance(ctx context.Context, actorID string, enabled bool) bool
}

// AdminHandler handles ban administration and the maintenance switch
type AdminHandler struct {
	service AdminServiceInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// BanStatusResponse reports a user's ban state after a moderation action
type BanStatusResponse struct {
	UserID string      `json:"user_id"`
	Ban    *models.Ban `json:"ban"`
}

// BanUser handles PATCH /admin/users/{id}/ban
func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetSessionFromRequest(r)
	userID := chi.URLParam(r, "id")

	var req models.BanRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.BanUser(r.Context(), actor.UserID, userID, req.Reason)
	if err != nil {
		h.writeModerationError(w, r, err)
		return
	}

	pkghttp.WriteMessage(w, "user_banned_success", BanStatusResponse{UserID: user.ID, Ban: user.Ban})
}

// UnbanUser handles PATCH /admin/users/{id}/unban
func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetSessionFromRequest(r)
	userID := chi.URLParam(r, "id")

	user, err := h.service.UnbanUser(r.Context(), actor.UserID, userID)
	if err != nil {
		h.writeModerationError(w, r, err)
		return
	}

	pkghttp.WriteMessage(w, "user_unbanned_success", BanStatusResponse{UserID: user.ID})
}

// EnableMaintenance handles PATCH /admin/app/maintenance/enable
func (h *AdminHandler) EnableMaintenance(w http.ResponseWriter, r *http.Request) {
	h.setMaintenance(w, r, true)
}

// DisableMaintenance handles PATCH /admin/app/maintenance/disable
func (h *AdminHandler) DisableMaintenance(w http.ResponseWriter, r *http.Request) {
	h.setMaintenance(w, r, false)
}

func (h *AdminHandler) setMaintenance(w http.ResponseWriter, r *http.Request, enabled bool) {
	actor := auth.GetSessionFromRequest(r)
	changed := h.service.SetMaintenance(r.Context(), actor.UserID, enabled)

	message := "maintenance_disabled"
	if enabled {
		message = "maintenance_enabled"
	}
	pkghttp.WriteMessage(w, message, map[string]bool{"maintenance": enabled, "changed": changed})
}

func (h *AdminHandler) writeModerationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrCannotBanAdmin):
		pkghttp.WriteForbidden(w, "cannot_ban_admin", "Administrators cannot be banned")
	case errors.Is(err, models.ErrAlreadyBanned):
		pkghttp.WriteError(w, http.StatusBadRequest, "user_already_banned", "User is already banned")
	case errors.Is(err, models.ErrNotBanned):
		pkghttp.WriteError(w, http.StatusBadRequest, "user_not_banned", "User is not banned")
	default:
		logger.ReportError(r.Context(), h.logger, "moderation action failed", err,
			slog.String("target_user_id", chi.URLParam(r, "id")))
		pkghttp.WriteInternalError(w)
	}
}
