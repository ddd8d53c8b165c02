package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/logger"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestHealthStatuses(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Checker
		wantStatus string
		wantCode   int
		wantReady  int
	}{
		{name: "no dependencies", checks: nil, wantStatus: "healthy", wantCode: http.StatusOK, wantReady: http.StatusOK},
		{name: "all up", checks: map[string]Checker{"postgres": CheckerFunc(up), "redis": CheckerFunc(up)}, wantStatus: "healthy", wantCode: http.StatusOK, wantReady: http.StatusOK},
		{name: "one down", checks: map[string]Checker{"postgres": CheckerFunc(up), "redis": CheckerFunc(down)}, wantStatus: "degraded", wantCode: http.StatusOK, wantReady: http.StatusServiceUnavailable},
		{name: "all down", checks: map[string]Checker{"redis": CheckerFunc(down)}, wantStatus: "unhealthy", wantCode: http.StatusServiceUnavailable, wantReady: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(logger.Get(), "stockcrew", "test", tt.checks)

			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))

			rec = httptest.NewRecorder()
			h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantReady, rec.Code)
		})
	}
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	New(logger.Get(), "stockcrew", "test", nil).HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
