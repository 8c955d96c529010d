package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: ":memory:"
jwt:
  secret: test-secret
  expire_hours: 24
quiz:
  default_page_size: 10
  max_page_size: 50
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 50, cfg.Quiz.MaxPageSize)
	assert.Equal(t, "minio", cfg.Storage.Type)
	// 默认值
	assert.Equal(t, "https://api.paystack.co", cfg.Payment.BaseURL)
	assert.Equal(t, "@every 1m", cfg.Quiz.ReaperSpec)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "mysql"},
			Quiz:     QuizConfig{DefaultPageSize: 10, MaxPageSize: 100},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Server.Mode = "release"
	c.JWT.Secret = "short"
	assert.Error(t, c.Validate())

	c = base()
	c.Database.Driver = "oracle"
	assert.Error(t, c.Validate())

	c = base()
	c.Quiz.MaxPageSize = 5
	assert.Error(t, c.Validate())

	c = base()
	c.Events.Enabled = true
	assert.Error(t, c.Validate())
}
