package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthService struct {
	LoginFunc   func(ctx context.Context, login, password, ip string) (*session.Record, error)
	LogoutFunc  func(ctx context.Context, sid, userID string) error
	RefreshFunc func(ctx context.Context, sid, userID string) (*session.Record, error)
}

func (m *mockAuthService) Login(ctx context.Context, login, password, ip string) (*session.Record, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, login, password, ip)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *mockAuthService) Logout(ctx context.Context, sid, userID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sid, userID)
	}
	return nil
}

func (m *mockAuthService) RefreshSession(ctx context.Context, sid, userID string) (*session.Record, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, sid, userID)
	}
	return nil, session.ErrNotFound
}

var testCookie = auth.CookieConfig{Name: "sid", SameSite: "strict", MaxAge: 28 * 24 * time.Hour}

func newAuthHandler(svc AuthServiceInterface) (*AuthHandler, *auth.TokenManager) {
	tokens := auth.NewTokenManager("handler-test-secret-handler-test", nil)
	return NewAuthHandler(svc, tokens, testCookie, nil, discardLogger()), tokens
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{LoginFunc: func(ctx context.Context, login, password, ip string) (*session.Record, error) {
		assert.Equal(t, "alice", login)
		assert.Equal(t, "192.0.2.1", ip)
		return &session.Record{ID: "sid-1", UserID: "user-1", Username: "alice", Roles: models.RoleMember}, nil
	}}
	h, tokens := newAuthHandler(svc)

	req := NewTestRequest(t, http.MethodPost, "/login", models.LoginRequest{Login: "alice", Password: "pw"})
	w := httptest.NewRecorder()
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body SessionResponse
	assert.Equal(t, "login_success", DecodeMessage(t, w, &body))
	assert.Equal(t, "user-1", body.UserID)
	assert.Equal(t, []string{"member"}, body.Roles)

	cookie := findCookie(w, "sid")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((28 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	claims, err := tokens.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.ID)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	until := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       any
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"missing password", models.LoginRequest{Login: "alice"}, nil, http.StatusBadRequest, "bad_request"},
		{"unknown field", `{"login":"a","password":"b","admin":true}`, nil, http.StatusBadRequest, "bad_request"},
		{"malformed json", `{"login":`, nil, http.StatusBadRequest, "bad_request"},
		{"invalid credentials", models.LoginRequest{Login: "a", Password: "b"}, models.ErrInvalidCredentials, http.StatusBadRequest, "login_invalid"},
		{"locked", models.LoginRequest{Login: "a", Password: "b"}, &models.LockedError{Until: until}, http.StatusBadRequest, "login_locked"},
		{"banned", models.LoginRequest{Login: "a", Password: "b"}, models.ErrUserBanned, http.StatusForbidden, "user_banned"},
		{"unexpected", models.LoginRequest{Login: "a", Password: "b"}, errors.New("db down"), http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{LoginFunc: func(ctx context.Context, login, password, ip string) (*session.Record, error) {
				if tt.serviceErr == nil {
					t.Fatal("service must not be called for a rejected body")
				}
				return nil, tt.serviceErr
			}}
			h, _ := newAuthHandler(svc)

			w := httptest.NewRecorder()
			h.Login(w, NewTestRequest(t, http.MethodPost, "/login", tt.body))

			resp := AssertErrorCode(t, w, tt.wantStatus, tt.wantCode)
			assert.Nil(t, findCookie(w, "sid"))
			if tt.wantCode == "login_locked" {
				assert.EqualValues(t, until.UnixMilli(), resp.Data["locked_until"])
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var destroyed string
	svc := &mockAuthService{LogoutFunc: func(ctx context.Context, sid, userID string) error {
		destroyed = sid
		return nil
	}}
	h, _ := newAuthHandler(svc)

	w := httptest.NewRecorder()
	h.Logout(w, WithSession(NewTestRequest(t, http.MethodPost, "/logout", nil), "user-1", models.RoleMember))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sid-user-1", destroyed)
	cookie := findCookie(w, "sid")
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestAuthHandler_Me(t *testing.T) {
	h, _ := newAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.Me(w, NewTestRequest(t, http.MethodGet, "/me", nil))
	AssertErrorCode(t, w, http.StatusUnauthorized, "not_logged_in")

	w = httptest.NewRecorder()
	h.Me(w, WithSession(NewTestRequest(t, http.MethodGet, "/me", nil), "user-1", models.RoleMember|models.RoleModerator))

	var body SessionResponse
	assert.Equal(t, "session", DecodeMessage(t, w, &body))
	assert.Equal(t, "user-1", body.UserID)
	assert.ElementsMatch(t, []string{"member", "moderator"}, body.Roles)
	assert.False(t, body.Verified)
}

func TestAuthHandler_Refresh(t *testing.T) {
	svc := &mockAuthService{RefreshFunc: func(ctx context.Context, sid, userID string) (*session.Record, error) {
		assert.Equal(t, "sid-user-1", sid)
		return &session.Record{ID: sid, UserID: userID, Username: "alice", XP: 300, HasAvatar: true}, nil
	}}
	h, _ := newAuthHandler(svc)

	w := httptest.NewRecorder()
	h.Refresh(w, WithSession(NewTestRequest(t, http.MethodPost, "/me/refresh", nil), "user-1", models.RoleMember))

	var body SessionResponse
	assert.Equal(t, "session", DecodeMessage(t, w, &body))
	assert.Equal(t, 300, body.XP)
	assert.True(t, body.HasAvatar)
}

func TestAuthHandler_Refresh_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session gone", session.ErrNotFound, http.StatusUnauthorized, "not_logged_in"},
		{"user gone", models.ErrNotFound, http.StatusUnauthorized, "not_logged_in"},
		{"store failure", errors.New("redis down"), http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{RefreshFunc: func(ctx context.Context, sid, userID string) (*session.Record, error) {
				return nil, tt.err
			}}
			h, _ := newAuthHandler(svc)

			w := httptest.NewRecorder()
			h.Refresh(w, WithSession(NewTestRequest(t, http.MethodPost, "/me/refresh", nil), "user-1", models.RoleMember))
			AssertErrorCode(t, w, tt.status, tt.code)
		})
	}
}
