package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"fix_analyzer/internal/domain"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no -config flag is given. Its absence is not
// an error.
const DefaultConfigPath = "configs/config.yaml"

// Config holds every setting of the analyzer process. LoadConfig fills it
// from YAML and then lets environment variables override deployment knobs.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Analyzer struct {
		MaxSymbols int `yaml:"max_symbols"`
		ArenaBytes int `yaml:"arena_bytes"`
	} `yaml:"analyzer"`

	Ingest struct {
		Workers      int `yaml:"workers"`
		BatchSize    int `yaml:"batch_size"`
		InboxSize    int `yaml:"inbox_size"`
		MaxLineBytes int `yaml:"max_line_bytes"`
	} `yaml:"ingest"`

	Report struct {
		IntervalMS int    `yaml:"interval_ms"`
		Output     string `yaml:"output"`
		JSONDump   string `yaml:"json_dump"`
	} `yaml:"report"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level                string `yaml:"level"`
		Dir                  string `yaml:"dir"`
		MaxSizeMB            int    `yaml:"max_size_mb"`
		MaxBackups           int    `yaml:"max_backups"`
		MaxAgeDays           int    `yaml:"max_age_days"`
		MalformedSampleEvery int    `yaml:"malformed_sample_every"`
	} `yaml:"logging"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "fix-analyzer"
	cfg.App.Version = "dev"

	cfg.Analyzer.MaxSymbols = 16_384
	cfg.Analyzer.ArenaBytes = 1 << 20

	cfg.Ingest.Workers = 4
	cfg.Ingest.BatchSize = 256
	cfg.Ingest.InboxSize = 64
	cfg.Ingest.MaxLineBytes = 64 << 10

	cfg.Report.IntervalMS = 1000
	cfg.Report.Output = "-"

	cfg.Storage.Path = "data/reports.db"
	cfg.Metrics.Addr = "localhost:9464"

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28
	cfg.Logging.MalformedSampleEvery = 1
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file at DefaultConfigPath
// (or an empty path) yields the defaults; a missing explicit path is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath:
		// run on defaults
	case errors.Is(err, os.ErrNotExist):
		return nil, &domain.ConfigError{Field: path, Err: domain.ErrConfigNotFound}
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Analyzer.MaxSymbols <= 0 {
		return &domain.ConfigError{Field: "analyzer.max_symbols", Err: errors.New("must be positive")}
	}
	if c.Analyzer.ArenaBytes <= 0 {
		return &domain.ConfigError{Field: "analyzer.arena_bytes", Err: errors.New("must be positive")}
	}

	if c.Ingest.Workers <= 0 {
		return &domain.ConfigError{Field: "ingest.workers", Err: errors.New("must be positive")}
	}
	if c.Ingest.BatchSize <= 0 {
		return &domain.ConfigError{Field: "ingest.batch_size", Err: errors.New("must be positive")}
	}
	if c.Ingest.InboxSize < 0 {
		return &domain.ConfigError{Field: "ingest.inbox_size", Err: errors.New("must not be negative")}
	}
	if c.Ingest.MaxLineBytes < 64 {
		return &domain.ConfigError{Field: "ingest.max_line_bytes", Err: errors.New("must be at least 64")}
	}

	if c.Report.IntervalMS < 0 {
		return &domain.ConfigError{Field: "report.interval_ms", Err: errors.New("must not be negative")}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("required when storage is enabled")}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return &domain.ConfigError{Field: "metrics.addr", Err: errors.New("required when metrics are enabled")}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MalformedSampleEvery < 0 {
		return &domain.ConfigError{Field: "logging.malformed_sample_every", Err: errors.New("must not be negative")}
	}

	return nil
}

// ReportInterval returns the periodic report interval; 0 disables it.
func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.Report.IntervalMS) * time.Millisecond
}

// overrideWithEnv replaces settings with environment variables when present.
func overrideWithEnv(cfg *Config) error {
	ints := []struct {
		env string
		dst *int
	}{
		{"FIXA_MAX_SYMBOLS", &cfg.Analyzer.MaxSymbols},
		{"FIXA_ARENA_BYTES", &cfg.Analyzer.ArenaBytes},
		{"FIXA_WORKERS", &cfg.Ingest.Workers},
	}
	for _, o := range ints {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigError{Field: o.env, Err: err}
		}
		*o.dst = n
	}

	if level := os.Getenv("FIXA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if path := os.Getenv("FIXA_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
		cfg.Storage.Enabled = true
	}
	return nil
}
