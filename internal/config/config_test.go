package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Forecaster.ApiURL = "https://forecasts.example.com"
	cfg.Forecaster.ApiKey = "key"
	return cfg
}

func TestDefaultsAreValidForIngest(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "ingest"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ingest defaults should validate, got %v", err)
	}
}

func TestValidateRequiresForecasterForRunMode(t *testing.T) {
	cfg := Defaults() // no forecaster credentials
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "forecaster") {
		t.Errorf("error should mention forecaster, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "fly" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty clob host", func(c *Config) { c.Polymarket.ClobHost = "" }, "clob_host"},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis"},
		{"zero max pages", func(c *Config) { c.Pipeline.MaxPages = 0 }, "max_pages"},
		{"zero batch size", func(c *Config) { c.Pipeline.CreationBatchSize = 0 }, "creation_batch_size"},
		{
			"tick not exceeding throttle",
			func(c *Config) { c.Pipeline.TickInterval = duration{30 * time.Minute} },
			"tick_interval",
		},
		{
			"archive without bucket",
			func(c *Config) {
				c.Pipeline.ArchiveEnabled = true
				c.S3.Bucket = ""
			},
			"bucket",
		},
		{
			"min conns above max",
			func(c *Config) {
				c.Database.PoolMinConns = 20
				c.Database.PoolMaxConns = 10
			},
			"pool_min_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation failure")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %v should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "ingest"

[pipeline]
tick_interval = "10m"
max_pages = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "ingest" {
		t.Errorf("mode = %q, want ingest", cfg.Mode)
	}
	if cfg.Pipeline.TickInterval.Duration != 10*time.Minute {
		t.Errorf("tick interval = %v, want 10m", cfg.Pipeline.TickInterval.Duration)
	}
	if cfg.Pipeline.MaxPages != 3 {
		t.Errorf("max pages = %d, want 3", cfg.Pipeline.MaxPages)
	}
	// Untouched fields keep their defaults.
	if cfg.Pipeline.InitialCursor != "MzUwMDA=" {
		t.Errorf("initial cursor = %q, want default", cfg.Pipeline.InitialCursor)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FORESIGHT_MODE", "create")
	t.Setenv("FORESIGHT_PIPELINE_MAX_PAGES", "7")
	t.Setenv("FORESIGHT_PIPELINE_MIN_LEAD_TIME", "12h")
	t.Setenv("FORESIGHT_DATABASE_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "create" {
		t.Errorf("mode = %q, want create", cfg.Mode)
	}
	if cfg.Pipeline.MaxPages != 7 {
		t.Errorf("max pages = %d, want 7", cfg.Pipeline.MaxPages)
	}
	if cfg.Pipeline.MinLeadTime.Duration != 12*time.Hour {
		t.Errorf("min lead time = %v, want 12h", cfg.Pipeline.MinLeadTime.Duration)
	}
	if cfg.Database.RunMigrations {
		t.Error("run_migrations should be overridden to false")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("65m")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 65*time.Minute {
		t.Errorf("got %v, want 65m", d.Duration)
	}
	if err := d.UnmarshalText([]byte("not-a-duration")); err == nil {
		t.Error("expected parse error")
	}
}
