package routes

import (
	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Auth   *handlers.AuthHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
}

// RegisterRoutes registers all application routes. router must already
// carry the gate middleware.
func RegisterRoutes(router chi.Router, h Handlers, loginGuard middleware.LoginGuardConfig) {
	router.Get("/health", h.Health.Health)

	// Guests only
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireGuest)
		r.With(middleware.LoginGuard(loginGuard)).Post("/login", h.Auth.Login)
	})

	// Any authenticated user
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/me", h.Auth.Me)
		r.Post("/me/refresh", h.Auth.Refresh)
	})

	// Admin-only routes; exempt from maintenance mode by prefix
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Patch("/users/{id}/ban", h.Admin.BanUser)
		r.Patch("/users/{id}/unban", h.Admin.UnbanUser)
		r.Patch("/app/maintenance/enable", h.Admin.EnableMaintenance)
		r.Patch("/app/maintenance/disable", h.Admin.DisableMaintenance)
	})
}
