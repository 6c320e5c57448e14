package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"fix_analyzer/internal/analyzer"
	"fix_analyzer/internal/domain"
	"fix_analyzer/internal/engine"
	"fix_analyzer/internal/event"
	"fix_analyzer/internal/infra"
	"fix_analyzer/internal/infra/storage"
	"fix_analyzer/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Analyzer *analyzer.TradeAnalyzer
	Store    *storage.ReportStore
	Metrics  *infra.Metrics
	Registry *prometheus.Registry
	Reports  *service.ReportService

	out io.WriteCloser
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the config at configPath and builds every component:
// config, logger, analyzer, optional archive, optional metrics registry.
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	return b.InitializeWith(cfg)
}

// InitializeWith builds the components from an already loaded config.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping FIX analyzer...", slog.String("version", cfg.App.Version))

	// 3. Analyzer and pooled buffers
	b.Analyzer = analyzer.New(cfg.Analyzer.MaxSymbols, cfg.Analyzer.ArenaBytes)
	b.Metrics = &infra.Metrics{}
	event.Warmup(cfg.Ingest.InboxSize + cfg.Ingest.Workers)
	slog.Info("Analyzer ready",
		slog.Int("symbol_slots", b.Analyzer.SymbolCapacity()),
		slog.Int("arena_bytes", cfg.Analyzer.ArenaBytes),
	)

	// 4. Report archive (optional)
	var archive domain.ReportArchiver
	if cfg.Storage.Enabled {
		store, err := storage.NewReportStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Store = store
		archive = store
		slog.Info("Report archive initialized", slog.String("path", cfg.Storage.Path))
	}

	// 5. Report output
	out, err := openOutput(cfg.Report.Output)
	if err != nil {
		return err
	}
	b.out = out
	b.Reports = service.NewReportService(b.Analyzer, out, archive)

	// 6. Metrics registry (optional)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			infra.NewCollector(b.Analyzer, b.Metrics),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		b.Registry = reg
	}

	return nil
}

// NewPipeline builds an ingestion pipeline over the analyzer with malformed
// message logging sampled per config.
func (b *Bootstrap) NewPipeline() *engine.Pipeline {
	cfg := b.Config
	onMalformed := infra.MalformedLogger(slog.Default(), b.Metrics, cfg.Logging.MalformedSampleEvery)
	return engine.NewPipeline(b.Analyzer, engine.PipelineConfig{
		Workers:      cfg.Ingest.Workers,
		BatchSize:    cfg.Ingest.BatchSize,
		InboxSize:    cfg.Ingest.InboxSize,
		MaxLineBytes: cfg.Ingest.MaxLineBytes,
		Metrics:      b.Metrics,
	}, onMalformed)
}

// DebugHandler serves pprof and, when metrics are enabled, /metrics.
func (b *Bootstrap) DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	if b.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(b.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// ServeDebug runs the debug server on the metrics address until ctx ends.
func (b *Bootstrap) ServeDebug(ctx context.Context) {
	srv := &http.Server{
		Addr:              b.Config.Metrics.Addr,
		Handler:           b.DebugHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Debug server started", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Debug server failed", slog.Any("error", err))
	}
}

// Close releases the archive and the report output.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	if b.out != nil {
		errs = append(errs, b.out.Close())
	}
	return errors.Join(errs...)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open report output: %w", err)
	}
	return f, nil
}
