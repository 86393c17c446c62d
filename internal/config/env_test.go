package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "none", env.DetectionProvider)
	assert.Equal(t, "local", env.StorageDriver)
	assert.Equal(t, 5*time.Second, env.ProviderTimeout)
	assert.Equal(t, 10, env.LiveFPS)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DETECTION_PROVIDER", "remote")
	t.Setenv("PROVIDER_TIMEOUT", "750ms")
	t.Setenv("LIVE_FPS", "4")
	t.Setenv("MQTT_ENABLED", "true")

	env, err := LoadEnv("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "remote", env.DetectionProvider)
	assert.Equal(t, 750*time.Millisecond, env.ProviderTimeout)
	assert.Equal(t, 4, env.LiveFPS)
	assert.True(t, env.MQTTEnabled)
}

func TestValidatorUsesJSONNames(t *testing.T) {
	type req struct {
		Email string `json:"email" validate:"required,email"`
	}

	err := NewValidator().Struct(req{Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'email'")
}
