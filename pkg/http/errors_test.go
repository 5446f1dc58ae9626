package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Nil(t, resp.Data)
	assert.NotContains(t, w.Body.String(), `"data"`)
}

func TestWriteErrorWithData(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithData(w, 400, "login_locked", "Locked", map[string]any{"locked_until": 1700000000000})

	resp := decodeError(t, w)
	assert.Equal(t, "login_locked", resp.Error)
	assert.EqualValues(t, 1700000000000, resp.Data["locked_until"])
}

func TestWriteHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"rate limited", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w) }, 429, "you_have_been_rate_limited"},
		{"maintenance", func(w *httptest.ResponseRecorder) { pkghttp.WriteMaintenance(w) }, 503, "app_under_maintenance"},
		{"session expired", func(w *httptest.ResponseRecorder) { pkghttp.WriteSessionExpired(w) }, 401, "session_expired"},
		{"user banned", func(w *httptest.ResponseRecorder) { pkghttp.WriteUserBanned(w) }, 403, "user_banned"},
		{"not logged in", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotLoggedIn(w) }, 401, "not_logged_in"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w) }, 500, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteMessage(w, "login_success", map[string]string{"username": "alice"})

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"message":"login_success","data":{"username":"alice"}}`, w.Body.String())
}
