package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("RATE_LIMIT", "")

	cfg := LoadConfig()

	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, "120-M", cfg.App.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "localhost", cfg.Redis.Host)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := LoadConfig()

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigInvalidTTLFallsBack(t *testing.T) {
	t.Setenv("JWT_TTL", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}
