package config

import (
	redisclient "github.com/yarda-ai/orchestrator/internal/infra/redis"
	"github.com/yarda-ai/orchestrator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig       `yaml:"server"`
	API           APIConfig          `yaml:"api"`
	Polling       PollingConfig      `yaml:"polling"`
	Credits       CreditsConfig      `yaml:"credits"`
	Retry         RetryConfig        `yaml:"retry"`
	Redis         redisclient.Config `yaml:"redis"`
	Database      postgres.Config    `yaml:"database"`
	MigrationsDir string             `yaml:"migrations_dir"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthToken string `yaml:"auth_token"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// PollingConfig holds status poller timing, in milliseconds.
type PollingConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	CeilingMS  int `yaml:"ceiling_ms"`
}

// CreditsConfig holds balance refresh timing. A negative interval disables
// the periodic timer; on-demand refreshes still work.
type CreditsConfig struct {
	RefreshIntervalMS int `yaml:"refresh_interval_ms"`
}

// RetryConfig holds submission retry settings. A negative max_retries
// disables retries entirely; zero means the default.
type RetryConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// Retries returns the effective retry count.
func (r RetryConfig) Retries() int {
	if r.MaxRetries < 0 {
		return 0
	}
	return r.MaxRetries
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
