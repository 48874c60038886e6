package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/admin", cfg.App.BasePath)
	assert.Equal(t, "test_secret_key", cfg.JWT.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.WarningTime)
	assert.Equal(t, time.Minute, cfg.Session.CheckInterval)
	assert.Equal(t, 5, cfg.Security.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, 5, cfg.Security.LoginBucketCapacity)
	assert.InDelta(t, 1.0/120, cfg.Security.LoginBucketRefillPerSec, 1e-12)
	assert.Equal(t, 10, cfg.Security.SaveBucketCapacity)
	assert.InDelta(t, 1.0/10, cfg.Security.SaveBucketRefillPerSec, 1e-12)
	assert.Equal(t, 5, cfg.Security.TwoFactorMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Security.TwoFactorWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("APP_BASE_PATH", "painel/")
	t.Setenv("SESSION_TIMEOUT", "10m")
	t.Setenv("SESSION_WARNING_TIME", "120")
	t.Setenv("LOGIN_BUCKET_REFILL_PER_SEC", "1/60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/painel", cfg.App.BasePath)
	assert.Equal(t, 10*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Session.WarningTime)
	assert.InDelta(t, 1.0/60, cfg.Security.LoginBucketRefillPerSec, 1e-12)
}

func TestValidateRejectsWarningLongerThanTimeout(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("SESSION_TIMEOUT", "5m")
	t.Setenv("SESSION_WARNING_TIME", "10m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_WARNING_TIME")
}

func TestValidateRequiresSecretOutsideTests(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}
