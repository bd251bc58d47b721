package bootstrap

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/kb-assistant-web/config"
)

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("KB_API_BASE_URL", "https://kb.example.com/")
	t.Setenv("KB_AUTH_TOKEN_EXPR", "data.access_token")
	t.Setenv("SESSION_RESOLVE_WAIT", "250ms")
	t.Setenv("REDIS_URI", "")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://kb.example.com", cfg.API.BaseURL)
	assert.Equal(t, "data.access_token", cfg.Auth.TokenExpr)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.ResolveWait)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, slog.LevelDebug, cfg.Observability.SlogLevel())
}

func TestValidateConfig(t *testing.T) {
	valid := func() *config.AppConfig {
		c := &config.AppConfig{}
		c.API.BaseURL = "http://localhost:8000"
		return c
	}

	require.NoError(t, ValidateConfig(valid()))
	require.Error(t, ValidateConfig(nil))

	c := valid()
	c.API.BaseURL = "ftp://files"
	require.ErrorContains(t, ValidateConfig(c), "unsupported scheme")

	c = valid()
	c.API.BaseURL = "http://"
	require.ErrorContains(t, ValidateConfig(c), "host is required")

	c = valid()
	c.HTTP.CookieDomain = "co.uk"
	require.ErrorContains(t, ValidateConfig(c), "APP_COOKIE_DOMAIN")

	for _, ok := range []string{".example.com", "kb.example.co.uk", "localhost", "127.0.0.1"} {
		c = valid()
		c.HTTP.CookieDomain = ok
		require.NoError(t, ValidateConfig(c), ok)
	}

	c = valid()
	c.Auth.TokenExpr = "token[["
	require.ErrorContains(t, ValidateConfig(c), "auth response mapping")
}

func TestApplyLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })
	cfg := &config.AppConfig{}
	cfg.Observability.LogLevel = "error"
	ApplyLogLevel(cfg)
	assert.Equal(t, slog.LevelError, logLevel.Level())
	ApplyLogLevel(nil)
	assert.Equal(t, slog.LevelError, logLevel.Level())
}
