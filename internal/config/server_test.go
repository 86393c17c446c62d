package config

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwtPkg "FaceVision/pkg/jwt"
	"FaceVision/pkg/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv(jwtPkg.SecretEnvKey, "test-secret")

	uploads := t.TempDir()
	env := &Env{
		AppPort:           "0",
		DBDriver:          "sqlite",
		DBDSN:             ":memory:",
		StorageDriver:     "local",
		UploadDir:         uploads,
		DetectionProvider: "none",
		ProviderTimeout:   time.Second,
		LiveFPS:           10,
	}

	logger := log.NewDiscard()
	ctx := context.Background()
	srv, err := NewServer(
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithEnv(env),
		WithValidator(NewValidator()),
		WithDatabase(),
		WithMongo(ctx),
		WithRedis(),
		WithStorage(),
		WithMQTT(),
		WithProvider(ctx),
		WithMiddleware(),
		WithBcryptUtils(),
		WithUtils(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.closeResources(context.Background()) })

	srv.RegisterHandler()
	srv.mountRoutes()
	return srv, uploads
}

func TestServerHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.engine.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body struct {
		Message string `json:"message"`
		System  struct {
			NumCPU     int `json:"num_cpu"`
			GoRoutines int `json:"go_routines"`
		} `json:"system"`
	}
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Server is Healthy!", body.Message)
	assert.Positive(t, body.System.NumCPU)
	assert.Positive(t, body.System.GoRoutines)
}

func TestServerRoutesAndUploads(t *testing.T) {
	srv, uploads := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/register",
		bytes.NewBufferString(`{"email":"ann@example.com","password":"secret1","name":"Ann"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.engine.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = srv.engine.Test(httptest.NewRequest(http.MethodGet, "/api/analysis/history", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, os.WriteFile(filepath.Join(uploads, "123.png"), []byte("png"), 0o644))
	resp, err = srv.engine.Test(httptest.NewRequest(http.MethodGet, "/uploads/123.png", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(raw))
}

func TestNewServerRequiresEnv(t *testing.T) {
	logger := log.NewDiscard()
	_, err := NewServer(WithFiber(NewFiber(logger)), WithLogger(logger))
	assert.Error(t, err)
}
