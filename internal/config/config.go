package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"smartstock/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Sync       SyncConfig       `yaml:"sync"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// SyncConfig wires the sync engine and connectivity monitor to the remote
// system the queue drains against. Intervals are in seconds, matching the
// rest of the config.
type SyncConfig struct {
	RemoteBaseURL        string        `yaml:"remote_base_url"`
	SubmitTimeoutSeconds int           `yaml:"submit_timeout_seconds"`
	ProbeIntervalSeconds int           `yaml:"probe_interval_seconds"`
	ProbeTimeoutSeconds  int           `yaml:"probe_timeout_seconds"`
	Backoff              BackoffConfig `yaml:"backoff"`
}

func (s SyncConfig) SubmitTimeout() time.Duration {
	return time.Duration(s.SubmitTimeoutSeconds) * time.Second
}

func (s SyncConfig) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalSeconds) * time.Second
}

func (s SyncConfig) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutSeconds) * time.Second
}

type BackoffConfig struct {
	Enabled             bool    `yaml:"enabled"`
	InitialDelaySeconds int     `yaml:"initial_delay_seconds"`
	MaxDelaySeconds     int     `yaml:"max_delay_seconds"`
	BackoffFactor       float64 `yaml:"backoff_factor"`
}

func (b BackoffConfig) InitialDelay() time.Duration {
	return time.Duration(b.InitialDelaySeconds) * time.Second
}

func (b BackoffConfig) MaxDelay() time.Duration {
	return time.Duration(b.MaxDelaySeconds) * time.Second
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	SeedPath      string `yaml:"seed_path"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins when both define a variable
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Sync.RemoteBaseURL == "" {
		return errors.New("sync remote_base_url is required")
	}

	if c.Sync.Backoff.Enabled && c.Sync.Backoff.BackoffFactor < 1 {
		return errors.New("sync backoff_factor must be >= 1")
	}

	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth enabled but no api_keys configured")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "smartstock"
	}
	if c.Sync.SubmitTimeoutSeconds == 0 {
		c.Sync.SubmitTimeoutSeconds = 10
	}
	if c.Sync.ProbeIntervalSeconds == 0 {
		c.Sync.ProbeIntervalSeconds = 15
	}
	if c.Sync.ProbeTimeoutSeconds == 0 {
		c.Sync.ProbeTimeoutSeconds = 3
	}
	if c.Sync.Backoff.Enabled {
		if c.Sync.Backoff.InitialDelaySeconds == 0 {
			c.Sync.Backoff.InitialDelaySeconds = 2
		}
		if c.Sync.Backoff.MaxDelaySeconds == 0 {
			c.Sync.Backoff.MaxDelaySeconds = 60
		}
		if c.Sync.Backoff.BackoffFactor == 0 {
			c.Sync.Backoff.BackoffFactor = 2
		}
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.Catalog.RetentionDays == 0 {
		c.Catalog.RetentionDays = models.CacheRetentionDays
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
