package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fix_analyzer/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Analyzer.MaxSymbols != 16_384 || cfg.Analyzer.ArenaBytes != 1<<20 {
		t.Errorf("analyzer defaults = %+v", cfg.Analyzer)
	}
	if cfg.ReportInterval() != time.Second {
		t.Errorf("ReportInterval() = %v", cfg.ReportInterval())
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
analyzer:
  max_symbols: 64
ingest:
  workers: 2
logging:
  level: debug
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analyzer.MaxSymbols != 64 {
		t.Errorf("max_symbols = %d", cfg.Analyzer.MaxSymbols)
	}
	if cfg.Analyzer.ArenaBytes != 1<<20 {
		t.Errorf("arena_bytes default lost: %d", cfg.Analyzer.ArenaBytes)
	}
	if cfg.Ingest.Workers != 2 || cfg.Ingest.BatchSize != 256 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := writeConfig(t, "analyzer: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "app:\n  name: test\n")
	t.Setenv("FIXA_MAX_SYMBOLS", "128")
	t.Setenv("FIXA_ARENA_BYTES", "4096")
	t.Setenv("FIXA_WORKERS", "8")
	t.Setenv("FIXA_LOG_LEVEL", "warn")
	t.Setenv("FIXA_STORAGE_PATH", "/tmp/x.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analyzer.MaxSymbols != 128 || cfg.Analyzer.ArenaBytes != 4096 || cfg.Ingest.Workers != 8 {
		t.Errorf("numeric overrides not applied: %+v %+v", cfg.Analyzer, cfg.Ingest)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Path != "/tmp/x.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadConfig_BadEnvNumber(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("FIXA_WORKERS", "many")

	_, err := LoadConfig(path)
	var ce *domain.ConfigError
	if !errors.As(err, &ce) || ce.Field != "FIXA_WORKERS" {
		t.Fatalf("expected ConfigError for FIXA_WORKERS, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero symbols", func(c *Config) { c.Analyzer.MaxSymbols = 0 }, "analyzer.max_symbols"},
		{"zero arena", func(c *Config) { c.Analyzer.ArenaBytes = 0 }, "analyzer.arena_bytes"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"zero batch", func(c *Config) { c.Ingest.BatchSize = 0 }, "ingest.batch_size"},
		{"tiny lines", func(c *Config) { c.Ingest.MaxLineBytes = 10 }, "ingest.max_line_bytes"},
		{"negative interval", func(c *Config) { c.Report.IntervalMS = -1 }, "report.interval_ms"},
		{"storage without path", func(c *Config) { c.Storage.Enabled = true; c.Storage.Path = "" }, "storage.path"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *domain.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %s, want %s", ce.Field, tt.field)
			}
			if domain.IsRetriable(err) {
				t.Error("config errors are never retriable")
			}
		})
	}
}
