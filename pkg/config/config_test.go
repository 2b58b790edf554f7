package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:8000/api", cfg.Backend.BaseURL)
	assert.Equal(t, "predify:session:", cfg.Session.KeyPrefix)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "predify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
backend:
  base_url: https://api.example.com/api
  timeout: 5s
session:
  store: redis
  redis_addr: cache:6379
insights:
  locale: fa
`), 0o600))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PREDIFY_ASSISTANT_MODEL=gemini-test\n"), 0o600))

	t.Cleanup(func() { _ = os.Unsetenv("PREDIFY_ASSISTANT_MODEL") })
	t.Setenv("PREDIFY_SERVER_PORT", "7070")
	t.Setenv("PREDIFY_INSIGHTS_LOAD_TIMEOUT", "3s")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://api.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "cache:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "fa", cfg.Insights.Locale)
	assert.Equal(t, 3*time.Second, cfg.Insights.LoadTimeout)
	assert.Equal(t, "gemini-test", cfg.Assistant.Model)
	assert.Equal(t, "dashboard", cfg.Activity.Channel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	env := map[string]string{
		"PREDIFY_SERVER_PORT":      "eighty",
		"PREDIFY_BACKEND_DEMO":     "maybe",
		"PREDIFY_CHARTS_CACHE_TTL": "1s",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PREDIFY_SERVER_PORT")
	assert.Contains(t, err.Error(), "PREDIFY_BACKEND_DEMO")
	assert.Equal(t, time.Second, cfg.Charts.CacheTTL)
}

func TestApplyEnvGeminiKeyFallback(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(key string) (string, bool) {
		if key == "GEMINI_API_KEY" {
			return "k", true
		}
		return "", false
	}))
	assert.Equal(t, "k", cfg.Assistant.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Server.Transport = "gin"
	cfg.Backend.BaseURL = "localhost"
	cfg.Session.Store = "disk"
	cfg.Insights.Locale = "de"
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "server.transport", "backend.base_url", "session.store", "insights.locale"} {
		assert.Contains(t, err.Error(), want)
	}

	demo := Default()
	demo.Backend.Demo = true
	demo.Backend.BaseURL = ""
	assert.NoError(t, demo.Validate())
}
