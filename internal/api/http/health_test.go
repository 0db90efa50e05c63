package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		checks     []Check
		wantStatus string
		wantDeps   map[string]string
	}{
		{
			name:       "no dependencies",
			wantStatus: "healthy",
		},
		{
			name: "all up",
			checks: []Check{
				{Name: "postgres", Ping: func(context.Context) error { return nil }},
				{Name: "redis"},
			},
			wantStatus: "healthy",
			wantDeps:   map[string]string{"postgres": "up", "redis": "disabled"},
		},
		{
			name: "one down",
			checks: []Check{
				{Name: "postgres", Ping: func(context.Context) error { return nil }},
				{Name: "redis", Ping: func(context.Context) error { return errors.New("refused") }},
			},
			wantStatus: "degraded",
			wantDeps:   map[string]string{"postgres": "up", "redis": "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler("loops", "1.2.3", tt.checks...).RegisterRoutes(r)

			for _, path := range []string{"/health", "/healthz"} {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				require.Equal(t, http.StatusOK, w.Code)

				var resp HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantStatus, resp.Status)
				assert.Equal(t, "loops", resp.Service)
				assert.Equal(t, "1.2.3", resp.Version)
				if tt.wantDeps == nil {
					assert.Empty(t, resp.Dependencies)
				} else {
					assert.Equal(t, tt.wantDeps, resp.Dependencies)
				}
			}
		})
	}
}
