package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/config"
)

func TestHealthEndpoint(t *testing.T) {
	h := NewHealthHandler(&config.Config{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPingReportsServiceInfo(t *testing.T) {
	cfg := &config.Config{
		Version: "1.2.3",
		Env:     "production",
		Datastore: config.DatastoreConfig{
			URL: "postgres://db.example.com:5432/autodirecto",
			Key: "service-key",
		},
	}
	h := NewHealthHandler(cfg, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "autodirecto-engine", resp.Service)
	assert.Equal(t, "production", resp.Environment)
	assert.True(t, resp.DatastoreConfigured)
	assert.NotEmpty(t, resp.GoVersion)
	assert.NotEmpty(t, resp.Hostname)
}

func TestPingUnconfiguredDatastore(t *testing.T) {
	h := NewHealthHandler(&config.Config{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.DatastoreConfigured)
}
