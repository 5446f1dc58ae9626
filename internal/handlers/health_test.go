package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		want       HealthResponse
	}{
		{
			name:       "all up",
			checks:     map[string]HealthCheck{"database": up, "redis": up},
			wantStatus: http.StatusOK,
			want:       HealthResponse{Status: "healthy", Components: map[string]string{"database": "up", "redis": "up"}},
		},
		{
			name:       "redis down",
			checks:     map[string]HealthCheck{"database": up, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			want:       HealthResponse{Status: "unhealthy", Components: map[string]string{"database": "up", "redis": "down"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checks, discardLogger()).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var got HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
