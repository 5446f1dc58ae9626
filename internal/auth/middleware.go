package auth

import (
	"context"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	holderContextKey  contextKey = "session_holder"
)

// SessionHolder lets outer middleware see the session attached further in.
type SessionHolder struct {
	rec *session.Record
}

// Session returns the attached session, or nil.
func (h *SessionHolder) Session() *session.Record {
	if h == nil {
		return nil
	}
	return h.rec
}

// WithSessionHolder returns ctx carrying an empty holder that WithSession
// fills in.
func WithSessionHolder(ctx context.Context) (context.Context, *SessionHolder) {
	h := &SessionHolder{}
	return context.WithValue(ctx, holderContextKey, h), h
}

// WithSession returns ctx carrying the caller's validated session.
func WithSession(ctx context.Context, rec *session.Record) context.Context {
	if h, ok := ctx.Value(holderContextKey).(*SessionHolder); ok {
		h.rec = rec
	}
	return context.WithValue(ctx, sessionContextKey, rec)
}

// SessionFromContext returns the validated session, or nil for guests.
func SessionFromContext(ctx context.Context) *session.Record {
	rec, _ := ctx.Value(sessionContextKey).(*session.Record)
	return rec
}

// GetSessionFromRequest is SessionFromContext on the request's context.
func GetSessionFromRequest(r *http.Request) *session.Record {
	return SessionFromContext(r.Context())
}

// RequireAuth rejects requests without a valid session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionFromRequest(r) == nil {
			pkghttp.WriteNotLoggedIn(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGuest rejects requests that already carry a valid session.
func RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionFromRequest(r) != nil {
			pkghttp.WriteError(w, http.StatusBadRequest, "logged_in", "You are already logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects sessions lacking role. It implies RequireAuth.
func RequireRole(role models.Roles, errorCode string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetSessionFromRequest(r).Roles.Has(role) {
				pkghttp.WriteForbidden(w, errorCode, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireAdmin allows administrators only.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdministrator, "not_admin")(next)
}
