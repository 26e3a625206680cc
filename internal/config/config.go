// Package config defines the top-level configuration for the foresight
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FORESIGHT_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Forecaster ForecasterConfig `toml:"forecaster"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the exchange listing API endpoint.
type PolymarketConfig struct {
	ClobHost string `toml:"clob_host"`
}

// ForecasterConfig holds the prediction provider endpoint and credentials.
type ForecasterConfig struct {
	ApiURL string `toml:"api_url"`
	ApiKey string `toml:"api_key"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the cold-storage
// archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds the scheduler and routine parameters.
type PipelineConfig struct {
	// TickInterval is the scheduler tick. It deliberately exceeds the
	// throttle window so a tick at the window boundary cannot double-fire.
	TickInterval duration `toml:"tick_interval"`
	// ThrottleWindow is how far the task lock is advanced after each tick.
	ThrottleWindow duration `toml:"throttle_window"`
	// InitialCursor is the listing cursor the ingestion walk starts from.
	InitialCursor string `toml:"initial_cursor"`
	// MaxPages bounds one ingestion walk.
	MaxPages int `toml:"max_pages"`
	// CreationBatchSize is how many candidate markets one creation pass scans.
	CreationBatchSize int `toml:"creation_batch_size"`
	// MinLeadTime is the minimum time to a market's deadline for it to be
	// eligible for a prediction.
	MinLeadTime duration `toml:"min_lead_time"`

	ArchiveEnabled       bool   `toml:"archive_enabled"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
	ArchiveCron          string `toml:"archive_cron"`
}

// MetricsConfig holds the Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "65m", "24h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "65m" or "24h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost: "https://clob.polymarket.com",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "foresight-data",
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			TickInterval:         duration{3900 * time.Second},
			ThrottleWindow:       duration{time.Hour},
			InitialCursor:        "MzUwMDA=",
			MaxPages:             50,
			CreationBatchSize:    5,
			MinLeadTime:          duration{24 * time.Hour},
			ArchiveEnabled:       false,
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":    true,
	"ingest": true,
	"create": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// needsForecaster reports whether the mode talks to the prediction provider.
func needsForecaster(mode string) bool {
	return mode == "run" || mode == "create"
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, ingest, create)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}

	if needsForecaster(mode) {
		if c.Forecaster.ApiURL == "" {
			errs = append(errs, "forecaster: api_url is required for mode "+mode)
		}
		if c.Forecaster.ApiKey == "" {
			errs = append(errs, "forecaster: api_key is required for mode "+mode)
		}
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Pipeline.ArchiveEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
		if c.Pipeline.ArchiveRetentionDays < 1 {
			errs = append(errs, "pipeline: archive_retention_days must be >= 1")
		}
	}

	if c.Pipeline.TickInterval.Duration <= 0 {
		errs = append(errs, "pipeline: tick_interval must be > 0")
	}
	if c.Pipeline.ThrottleWindow.Duration <= 0 {
		errs = append(errs, "pipeline: throttle_window must be > 0")
	}
	if c.Pipeline.TickInterval.Duration <= c.Pipeline.ThrottleWindow.Duration {
		errs = append(errs, "pipeline: tick_interval must exceed throttle_window to avoid a double-fire at the window boundary")
	}
	if c.Pipeline.MaxPages < 1 {
		errs = append(errs, "pipeline: max_pages must be >= 1")
	}
	if c.Pipeline.CreationBatchSize < 1 {
		errs = append(errs, "pipeline: creation_batch_size must be >= 1")
	}
	if c.Pipeline.MinLeadTime.Duration <= 0 {
		errs = append(errs, "pipeline: min_lead_time must be > 0")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, fmt.Sprintf("metrics: port must be 1-65535, got %d", c.Metrics.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
