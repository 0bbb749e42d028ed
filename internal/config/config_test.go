package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
  path: test.db
storage:
  local_path: `+filepath.Join(t.TempDir(), "uploads")+`
`)
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 45*time.Second, cfg.Sourcing.GenerationTimeout())
	assert.Equal(t, 50, cfg.Sourcing.MaxTaskCount)
	assert.Equal(t, "ru", cfg.Sourcing.DefaultLanguage)
	assert.Equal(t, "STANDARD", cfg.Sourcing.DefaultFormat)
	assert.Equal(t, 5*time.Minute, cfg.Sourcing.CandidateCacheTTL())
	assert.Equal(t, 20, cfg.RateLimit.GeneratePerMinute)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.DirExists(t, cfg.Storage.LocalPath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  type: minio
ai:
  model: gpt-4o-mini
`)
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("AI_MODEL", "local-model")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "local-model", cfg.AI.Model)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Mode: "release"}, JWT: JWTConfig{Secret: "short"}}
	assert.ErrorContains(t, cfg.Validate(), "JWT secret is too short")

	cfg.JWT.Secret = ""
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg.Database.Driver = "postgres"
	cfg.Sourcing.GenerationTimeoutSeconds = -1
	assert.Error(t, cfg.Validate())
}
