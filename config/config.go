package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/chargeflow/chargeflow/core/session"
	"github.com/chargeflow/chargeflow/infra/metrics"
	"github.com/chargeflow/chargeflow/infra/telemetry"
)

type Config struct {
	HTTP       HTTPConfig       `json:"http"`
	Simulation session.Config   `json:"simulation"`
	Metrics    MetricsConfig    `json:"metrics"`
	Telemetry  telemetry.Config `json:"telemetry"`
	Logging    LoggingConfig    `json:"logging"`
	Seed       bool             `json:"seed"`
}

// LoggingConfig controls the global log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %s", c.Level)
}

// HTTPConfig defines the REST listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MetricsConfig selects the metrics sinks.
type MetricsConfig struct {
	PrometheusEnabled bool                 `json:"prometheus_enabled"`
	PrometheusAddr    string               `json:"prometheus_addr"`
	Influx            metrics.InfluxConfig `json:"influx"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Seed: true}
	cfg.HTTP.SetDefaults()
	cfg.Simulation.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Telemetry.SetDefaults()
	cfg.Logging.SetDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CF_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cf_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Simulation.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Telemetry.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Simulation.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
