package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FORESIGHT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FORESIGHT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "FORESIGHT_POLYMARKET_CLOB_HOST")

	// ── Forecaster ──
	setStr(&cfg.Forecaster.ApiURL, "FORESIGHT_FORECASTER_API_URL")
	setStr(&cfg.Forecaster.ApiKey, "FORESIGHT_FORECASTER_API_KEY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "FORESIGHT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "FORESIGHT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "FORESIGHT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "FORESIGHT_DATABASE_NAME")
	setStr(&cfg.Database.User, "FORESIGHT_DATABASE_USER")
	setStr(&cfg.Database.Password, "FORESIGHT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "FORESIGHT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "FORESIGHT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "FORESIGHT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "FORESIGHT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FORESIGHT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FORESIGHT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FORESIGHT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FORESIGHT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FORESIGHT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FORESIGHT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FORESIGHT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FORESIGHT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FORESIGHT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FORESIGHT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FORESIGHT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FORESIGHT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FORESIGHT_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.TickInterval, "FORESIGHT_PIPELINE_TICK_INTERVAL")
	setDuration(&cfg.Pipeline.ThrottleWindow, "FORESIGHT_PIPELINE_THROTTLE_WINDOW")
	setStr(&cfg.Pipeline.InitialCursor, "FORESIGHT_PIPELINE_INITIAL_CURSOR")
	setInt(&cfg.Pipeline.MaxPages, "FORESIGHT_PIPELINE_MAX_PAGES")
	setInt(&cfg.Pipeline.CreationBatchSize, "FORESIGHT_PIPELINE_CREATION_BATCH_SIZE")
	setDuration(&cfg.Pipeline.MinLeadTime, "FORESIGHT_PIPELINE_MIN_LEAD_TIME")
	setBool(&cfg.Pipeline.ArchiveEnabled, "FORESIGHT_PIPELINE_ARCHIVE_ENABLED")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "FORESIGHT_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Pipeline.ArchiveCron, "FORESIGHT_PIPELINE_ARCHIVE_CRON")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "FORESIGHT_METRICS_ENABLED")
	setInt(&cfg.Metrics.Port, "FORESIGHT_METRICS_PORT")

	// ── Top-level ──
	setStr(&cfg.Mode, "FORESIGHT_MODE")
	setStr(&cfg.LogLevel, "FORESIGHT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
