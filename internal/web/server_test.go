package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-labs/chorus/internal/api"
	"github.com/verity-labs/chorus/internal/checkpoint"
	"github.com/verity-labs/chorus/internal/config"
	"github.com/verity-labs/chorus/internal/export"
	"github.com/verity-labs/chorus/internal/model"
	"github.com/verity-labs/chorus/internal/service"
	"github.com/verity-labs/chorus/internal/workflow"
)

const roster = `[{"name": "Ada", "role": "Engineer", "focus": "architecture"}]`

func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	runner, err := workflow.NewRunner(checkpoint.NewMemoryStore(), model.NewScriptedBackend(roster), workflow.Options{})
	require.NoError(t, err)
	svc := service.NewReportService(runner, export.NewCompiler(t.TempDir(), nil), nil)
	handler := api.NewHandler(svc, nil, api.Limits{DefaultMaxAnalysts: 3, MaxAnalystsLimit: 8})
	return NewServer(cfg, handler, nil)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{Host: "127.0.0.1", Port: 0})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestAPIMountedUnderVersionPrefix(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{Host: "127.0.0.1", Port: 0})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/unknown/status", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Same path without the prefix is not routed.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/reports/unknown/status", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SESSION_NOT_FOUND")
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{
		Host:        "127.0.0.1",
		Port:        0,
		EnableCORS:  true,
		CORSOrigins: []string{"https://app.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/start", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
