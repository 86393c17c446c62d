package jwtPkg

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"FaceVision/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv(SecretEnvKey, "test-secret")

	token, exp, err := Sign(map[string]interface{}{
		"id":    "01HUSER",
		"email": "a@example.com",
		"name":  "Ann",
	}, 7*24*time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(7*24*time.Hour).Unix(), exp, 2)

	parsed, err := Verify(token)
	require.NoError(t, err)

	user, err := ClaimsUser(parsed)
	require.NoError(t, err)
	assert.Equal(t, entity.UserLoginData{ID: "01HUSER", Email: "a@example.com", Name: "Ann"}, user)
}

func TestVerifyRejects(t *testing.T) {
	t.Setenv(SecretEnvKey, "test-secret")

	expired, _, err := Sign(map[string]interface{}{"id": "x", "email": "e", "name": "n"}, -time.Minute)
	require.NoError(t, err)
	_, err = Verify(expired)
	assert.Error(t, err)

	t.Setenv(SecretEnvKey, "other-secret")
	valid, _, err := Sign(map[string]interface{}{"id": "x", "email": "e", "name": "n"}, time.Minute)
	require.NoError(t, err)

	t.Setenv(SecretEnvKey, "test-secret")
	_, err = Verify(valid)
	assert.Error(t, err)
}

func TestClaimsUserRequiresFields(t *testing.T) {
	t.Setenv(SecretEnvKey, "test-secret")

	token, _, err := Sign(map[string]interface{}{"id": "x", "email": "e"}, time.Minute)
	require.NoError(t, err)
	parsed, err := Verify(token)
	require.NoError(t, err)

	_, err = ClaimsUser(parsed)
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestTokenFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		token, err := TokenFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(token)
	})

	tests := []struct {
		name   string
		url    string
		header string
		status int
		body   string
	}{
		{"bearer header", "/", "Bearer abc", fiber.StatusOK, "abc"},
		{"query fallback", "/?token=qqq", "", fiber.StatusOK, "qqq"},
		{"wrong scheme", "/", "Basic abc", fiber.StatusUnauthorized, ErrInvalidFormat.Error()},
		{"missing", "/", "", fiber.StatusUnauthorized, ErrEmptyToken.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, string(body))
		})
	}
}
