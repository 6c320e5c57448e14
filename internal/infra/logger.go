package infra

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"fix_analyzer/internal/domain"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new slog.Logger with log rotation support
func NewLogger(cfg *Config) *slog.Logger {
	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "analyzer.log"),
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}

	// stdout may carry the report; keep logs on stderr there
	var console io.Writer = os.Stdout
	if cfg.Report.Output == "" || cfg.Report.Output == "-" {
		console = os.Stderr
	}
	writer := io.MultiWriter(console, fileLogger)

	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Logging.Level),
	}

	return slog.New(slog.NewJSONHandler(writer, opts))
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MalformedLogger returns an ingestion error callback that logs every n-th
// rejected message at Warn and counts all of them in m. n <= 0 disables
// logging; m may be nil.
func MalformedLogger(logger *slog.Logger, m *Metrics, n int) func(error) {
	var seen atomic.Uint64
	return func(err error) {
		if m != nil {
			m.RecordMalformed()
		}
		if n <= 0 {
			return
		}
		k := seen.Add(1)
		if (k-1)%uint64(n) != 0 {
			return
		}

		attrs := []any{
			slog.String("kind", domain.KindOf(err).String()),
			slog.Uint64("seen", k),
		}
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			attrs = append(attrs, slog.Int("at_byte", pe.AtByte))
		}
		logger.Warn("MALFORMED_MESSAGE", attrs...)
	}
}
