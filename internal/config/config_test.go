package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotadash/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "web", cfg.WebDir)
	assert.Equal(t, "/api/auth", cfg.AuthBasePath)
	assert.Equal(t, "qd_session", cfg.CookieName)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "no-reply@quotadash.local", cfg.MailFrom)
	assert.Empty(t, cfg.AlertEmail)
	assert.InDelta(t, 80.0, cfg.UsageAlertThreshold, 0.001)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/quotadash")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ALLOWED_ORIGIN", "https://dash.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres://localhost/quotadash", cfg.DatabaseURL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://dash.example.com", cfg.AllowedOrigin)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")

	_, err := config.Load()
	require.Error(t, err)
}
