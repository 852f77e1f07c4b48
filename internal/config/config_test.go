package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT_SECONDS", "IDEMPOTENCY_TTL", "IDEMPOTENCY_TTL_SECONDS",
		"JWT_SECRET", "JWT_ISSUER", "SESSION_TTL", "LOCK_TIMEOUT", "LOGIN_MAX_PER_MINUTE",
		"SEED_CLIENTS", "SEED_CSV_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, 5, cfg.LoginMaxPerMinute)
	assert.Zero(t, cfg.SeedClients)
}

func TestLoadDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("LOCK_TIMEOUT", "3")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("SEED_CLIENTS", "10")
	t.Setenv("PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 10, cfg.SeedClients)
	assert.Equal(t, ":9090", cfg.Address())
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCK_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("SEED_CLIENTS", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/bank")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}
