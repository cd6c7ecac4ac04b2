package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.API.TimeoutMS == 0 {
		cfg.API.TimeoutMS = 30000
	}
	if cfg.Polling.IntervalMS == 0 {
		cfg.Polling.IntervalMS = 2000
	}
	if cfg.Polling.CeilingMS == 0 {
		cfg.Polling.CeilingMS = 300000
	}
	if cfg.Credits.RefreshIntervalMS == 0 {
		cfg.Credits.RefreshIntervalMS = 15000
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}
}
