package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestWith(rec *session.Record) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if rec != nil {
		req = req.WithContext(WithSession(req.Context(), rec))
	}
	return req
}

func TestGuards(t *testing.T) {
	member := &session.Record{UserID: "u1", Roles: models.RoleMember}
	moderator := &session.Record{UserID: "u2", Roles: models.RoleMember | models.RoleModerator}
	admin := &session.Record{UserID: "u3", Roles: models.RoleMember | models.RoleAdministrator}

	tests := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		rec    *session.Record
		status int
	}{
		{"auth rejects guest", RequireAuth, nil, http.StatusUnauthorized},
		{"auth allows member", RequireAuth, member, http.StatusOK},
		{"guest allows guest", RequireGuest, nil, http.StatusOK},
		{"guest rejects member", RequireGuest, member, http.StatusBadRequest},
		{"admin rejects guest", RequireAdmin, nil, http.StatusUnauthorized},
		{"admin rejects moderator", RequireAdmin, moderator, http.StatusForbidden},
		{"admin allows admin", RequireAdmin, admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.guard(okHandler).ServeHTTP(w, requestWith(tt.rec))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSessionFromContext_Guest(t *testing.T) {
	assert.Nil(t, GetSessionFromRequest(requestWith(nil)))
}

func TestSessionHolder_SeesInnerSession(t *testing.T) {
	ctx, holder := WithSessionHolder(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Nil(t, holder.Session())

	rec := &session.Record{ID: "s1", UserID: "u1"}
	_ = WithSession(ctx, rec)
	assert.Same(t, rec, holder.Session())

	var none *SessionHolder
	assert.Nil(t, none.Session())
}

func TestSessionCookie(t *testing.T) {
	cfg := CookieConfig{Name: "sid", Secure: true, SameSite: "strict", MaxAge: time.Hour}

	w := httptest.NewRecorder()
	SetSessionCookie(w, "token-value", cfg)
	cookies := w.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		c := cookies[0]
		assert.Equal(t, "sid", c.Name)
		assert.Equal(t, "token-value", c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, 3600, c.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "token-value"})
	got, err := GetSessionCookie(req, "sid")
	assert.NoError(t, err)
	assert.Equal(t, "token-value", got)

	w = httptest.NewRecorder()
	ClearSessionCookie(w, cfg)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}
