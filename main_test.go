package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swiftfiles/internal/config"
	"swiftfiles/internal/logging"
	"swiftfiles/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppPort:            "127.0.0.1:0",
		DatabaseDriver:     "memory",
		JWTSecret:          "test_jwt_secret",
		TokenTTL:           time.Hour,
		PublicBaseURL:      "http://localhost:5173",
		MaxUploadBytes:     1 << 20,
		Storage:            storage.Config{Type: storage.TypeLocal, LocalPath: t.TempDir()},
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "error",
	}
}

func TestServerStartupAndHealthCheck(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	t.Run("HealthCheck", func(t *testing.T) {
		resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		bodyBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(bodyBytes), `"status":"ok"`)
	})

	t.Run("UnauthenticatedAccess", func(t *testing.T) {
		resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/files/user", nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("MemoryStoreRegister", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "secret1"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Fiber.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = "sqlite"
	cfg.DatabaseDSN = "file:main_test?mode=memory&cache=shared"

	app, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestNewApp_BadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = storage.Config{Type: "ftp"}

	_, err := NewApp(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, "127.0.0.1:0") }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_BadAddress(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	err = app.Run(context.Background(), "256.0.0.1:-1")
	assert.Error(t, err)
}
