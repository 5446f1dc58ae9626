package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/session"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSession attaches a session for userID with roles to the request
func WithSession(req *http.Request, userID string, roles models.Roles) *http.Request {
	rec := &session.Record{ID: "sid-" + userID, UserID: userID, Username: userID, Roles: roles}
	return req.WithContext(auth.WithSession(req.Context(), rec))
}

// AssertErrorCode checks status and message id of an error response
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, status, w.Code, "Response status mismatch")
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, code, resp.Error)
	return resp
}

// DecodeMessage decodes a success envelope, unmarshalling data into target
func DecodeMessage(t *testing.T, w *httptest.ResponseRecorder, target any) string {
	t.Helper()
	var resp struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if target != nil {
		require.NoError(t, json.Unmarshal(resp.Data, target))
	}
	return resp.Message
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
