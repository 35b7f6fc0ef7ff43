package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)
	for _, key := range []string{
		"SERVER_PORT", "SERVER_TIMEOUT", "SERVER_THROTTLE_LIMIT",
		"TEXT_PROVIDER", "TEXT_CHAT_MODEL", "TEXT_CODE_MODEL", "TEXT_TIMEOUT",
		"IMAGE_PROVIDER", "IMAGE_MODEL", "IMAGE_TIMEOUT", "IMAGE_FALLBACK_BASE_URL",
		"AUTH_USER_HEADER", "AUTH_DISABLED", "CACHE_ENABLE", "REDIS_TTL", "LOG_LEVEL",
	} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.Timeout)
	assert.Equal(t, 50, cfg.Server.ThrottleLimit)
	assert.Equal(t, "deepseek", cfg.Text.Provider)
	assert.Equal(t, "deepseek-chat", cfg.Text.ChatModel)
	assert.Equal(t, "deepseek-coder", cfg.Text.CodeModel)
	assert.Equal(t, time.Minute, cfg.Text.Timeout)
	assert.Equal(t, "openai", cfg.Image.Provider)
	assert.Equal(t, "dall-e-3", cfg.Image.Model)
	assert.Equal(t, 30*time.Second, cfg.Image.Timeout)
	assert.Equal(t, "https://example.com", cfg.Image.FallbackBaseURL)
	assert.Equal(t, "X-User-Id", cfg.Auth.UserHeader)
	assert.False(t, cfg.Auth.Disabled)
	assert.False(t, cfg.CacheEnable)
	assert.Equal(t, 10*time.Minute, cfg.RedisConfig.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	for _, key := range []string{"DEEPSEEK_API_KEY", "IMAGE_TIMEOUT", "IMAGE_FALLBACK_BASE_URL", "TEXT_TIMEOUT", "SERVER_TIMEOUT"} {
		unsetenv(t, key)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	content := "DEEPSEEK_API_KEY=sk-test\nIMAGE_TIMEOUT=45s\nIMAGE_FALLBACK_BASE_URL=https://cdn.example.org\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ENV_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Text.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Image.Timeout)
	assert.Equal(t, "https://cdn.example.org", cfg.Image.FallbackBaseURL)
}

func TestLoad_EnvironmentWinsOverEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEXT_CHAT_MODEL=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("TEXT_CHAT_MODEL", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Text.ChatModel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "image timeout not below server timeout",
			env:  map[string]string{"TEXT_TIMEOUT": "60s", "IMAGE_TIMEOUT": "3m", "SERVER_TIMEOUT": "2m"},
			want: "must exceed TEXT_TIMEOUT + IMAGE_TIMEOUT",
		},
		{
			name: "both stages do not fit into server timeout",
			env:  map[string]string{"TEXT_TIMEOUT": "100s", "IMAGE_TIMEOUT": "30s", "SERVER_TIMEOUT": "2m"},
			want: "SERVER_TIMEOUT (2m0s) must exceed TEXT_TIMEOUT + IMAGE_TIMEOUT (2m10s)",
		},
		{
			name: "zero text timeout",
			env:  map[string]string{"TEXT_TIMEOUT": "0s", "IMAGE_TIMEOUT": "30s", "SERVER_TIMEOUT": "2m"},
			want: "TEXT_TIMEOUT must be positive",
		},
		{
			name: "zero image timeout",
			env:  map[string]string{"TEXT_TIMEOUT": "60s", "IMAGE_TIMEOUT": "0s", "SERVER_TIMEOUT": "2m"},
			want: "IMAGE_TIMEOUT must be positive",
		},
		{
			name: "zero throttle",
			env:  map[string]string{"TEXT_TIMEOUT": "60s", "IMAGE_TIMEOUT": "30s", "SERVER_TIMEOUT": "2m", "SERVER_THROTTLE_LIMIT": "0"},
			want: "SERVER_THROTTLE_LIMIT",
		},
		{
			name: "bad duration",
			env:  map[string]string{"IMAGE_TIMEOUT": "soon"},
			want: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noEnvFile(t)
			unsetenv(t, "SERVER_THROTTLE_LIMIT")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
