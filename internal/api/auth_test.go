package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"smartstock/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "terminal-key-1", Name: "terminal-1"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 2, Burst: 2},
	}
}

func serveWrapped(cfg config.APIConfig, req *http.Request) *httptest.ResponseRecorder {
	auth := NewHTTPAuth(cfg)
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPAuth_ValidKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	req.Header.Set("x-api-key", "terminal-key-1")

	rec := serveWrapped(authConfig(), req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuth_MissingKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)

	rec := serveWrapped(authConfig(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuth_InvalidKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	req.Header.Set("x-api-key", "wrong")

	rec := serveWrapped(authConfig(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuth_HealthBypassesAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	rec := serveWrapped(authConfig(), req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuth_DisabledPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)

	rec := serveWrapped(config.APIConfig{}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuth_RateLimit(t *testing.T) {
	cfg := authConfig()
	auth := NewHTTPAuth(cfg)
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
		req.Header.Set("x-api-key", "terminal-key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	// Burst of 2, then the limiter kicks in.
	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
	assert.Equal(t, http.StatusTooManyRequests, statuses[3])
}
