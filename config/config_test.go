package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "attendance.db", cfg.DBPath)
	assert.Equal(t, 480, cfg.SessionTTLMinutes)
	assert.Equal(t, "local-dev-secret", cfg.JwtSecret)
	assert.Equal(t, cfg.DataDir, cfg.AdminPasswordOutDir)
	assert.False(t, cfg.ResetAdminPassword)
}

func TestLoad_MissingSecretOutsideLocal(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SESSION_TTL_MINUTES", "60")
	t.Setenv("RESET_ADMIN_PASSWORD", "1")
	t.Setenv("ADMIN_PASSWORD_OUT_DIR", "/tmp/out")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.JwtSecret)
	assert.Equal(t, 60, cfg.SessionTTLMinutes)
	assert.True(t, cfg.ResetAdminPassword)
	assert.Equal(t, "/tmp/out", cfg.AdminPasswordOutDir)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SESSION_TTL_MINUTES", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 480, cfg.SessionTTLMinutes)
}
