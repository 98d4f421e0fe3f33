package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":9999"
simulation:
  tick_interval_ms: 250
  default_duration_sec: 120
metrics:
  prometheus_enabled: true
seed: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 250, cfg.Simulation.TickIntervalMS)
	assert.Equal(t, 120, cfg.Simulation.DefaultDurationSec)
	assert.True(t, cfg.Metrics.PrometheusEnabled)
	assert.True(t, cfg.Seed)
	// Unset sections fall back to defaults.
	assert.Equal(t, ":9090", cfg.Metrics.PrometheusAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "chargeflow", cfg.Telemetry.TopicPrefix)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"http":{"addr":":7070"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "config.toml", "addr = ':8080'")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":8080"
`)
	t.Setenv("CF_HTTP__ADDR", ":6060")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTP.Addr)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := writeFile(t, "config.yaml", `
logging:
  level: verbose
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 1000, cfg.Simulation.TickIntervalMS)
	assert.Equal(t, 60, cfg.Simulation.DefaultDurationSec)
	assert.True(t, cfg.Seed)
}
