package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StickerRadar/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: StickerRadar
  env: test
upstream:
  base_url: "https://api.example"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.Monitor.CheckInterval)
	// 不配置时过期阈值取两个检查周期
	assert.Equal(t, 6*time.Minute, cfg.Monitor.StaleAfter)
	assert.Equal(t, 5, cfg.Monitor.MaxConcurrentSends)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "8080", cfg.API.Port)
	assert.Equal(t, 9, cfg.Reports.Hour)
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: "https://api.example"
  timeout: 10s
  rate_per_minute: 5
monitor:
  check_interval: 1m
  stale_after: 7m
  max_concurrent_sends: 2
storage:
  driver: postgres
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Monitor.CheckInterval)
	assert.Equal(t, 7*time.Minute, cfg.Monitor.StaleAfter)
	assert.Equal(t, 2, cfg.Monitor.MaxConcurrentSends)
	assert.Equal(t, 5, cfg.Upstream.RatePerMinute)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: from-file
storage:
  driver: file
`)

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("STORAGE_DRIVER", "postgres")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
