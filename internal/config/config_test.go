package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parla-app/parla/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[server]
port = 9090
data_path = "/srv/parla"
jwt_secret = "from-file"
cors_origins = ["https://www.youtube.com", "https://www.netflix.com"]

[translate]
engine = "deepl"
deepl_key = "file-key"

[redis]
addr = "localhost:6379"

[engine]
poll_interval = 250
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parla.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	return path
}

func TestLoadFileOverDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/parla/parla.db", cfg.Server.DBPath)
	assert.Equal(t, "from-file", cfg.Server.JWTSecret)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, []string{"https://www.youtube.com", "https://www.netflix.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "deepl", cfg.Translate.Engine)
	assert.Equal(t, "gpt-4o-mini", cfg.Translate.OpenAIModel)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTLDuration())
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.PollIntervalDuration())
	assert.Equal(t, 20, cfg.Engine.MaxAttempts)
	assert.Equal(t, 300*time.Millisecond, cfg.Engine.ResumeDelayDuration())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DEEPL_API_KEY", "env-key")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := config.Load(writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Translate.DeepLKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, config.ErrConfigFileNotFound)
}

func TestGeneratedSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parla.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o600))
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.GeneratedSecret)
	assert.Len(t, cfg.Server.JWTSecret, 64)
}
