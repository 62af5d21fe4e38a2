package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_BCRYPT_COST", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_HOST", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("APP_CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.True(t, cfg.Logger.Development)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "*", cfg.App.CORSOrigins)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_ACCESS_TOKEN_TTL_MINUTES=15\n"), 0o600))
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	os.Unsetenv("AUTH_ACCESS_TOKEN_TTL_MINUTES")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "nope")

	_, err := Load()
	assert.Error(t, err)
}
