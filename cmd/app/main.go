package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fix_analyzer/internal/analyzer"
	"fix_analyzer/internal/app"
	"fix_analyzer/internal/engine"

	"golang.org/x/sync/errgroup"
)

const smokeMessage = "8=FIX.4.2|35=D|49=SENDER|56=TARGET|11=ORD001|55=AAPL|54=1|38=100|44=150.25|52=20240115-09:30:00.123456|10=128|"

type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		configPath string
		inputs     inputList
		once       bool
		sample     bool
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default configs/config.yaml if present)")
	flag.Var(&inputs, "in", "input file of newline-delimited FIX messages, '-' for stdin (repeatable)")
	flag.BoolVar(&once, "once", false, "emit a single report after all inputs reach EOF and exit")
	flag.BoolVar(&sample, "sample", false, "ingest one built-in sample message, print the report and exit")
	flag.Parse()
	inputs = append(inputs, flag.Args()...)

	if sample {
		if err := runSample(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Debug server (pprof + /metrics), localhost only by default
	if cfg.Metrics.Enabled {
		go bootstrap.ServeDebug(ctx)
	}

	if len(inputs) == 0 {
		inputs = inputList{"-"}
	}

	code := run(ctx, bootstrap, inputs, once)
	bootstrap.Close()
	os.Exit(code)
}

func run(ctx context.Context, b *app.Bootstrap, inputs []string, once bool) int {
	cfg := b.Config

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 4. Ingestion pipeline
	p := b.NewPipeline()
	pipeErr := make(chan error, 1)
	go func() {
		err := p.Run(runCtx)
		if err != nil {
			cancel()
		}
		pipeErr <- err
	}()

	// 5. Periodic reports; -once keeps only the final one
	reportCtx, stopReports := context.WithCancel(ctx)
	defer stopReports()
	interval := cfg.ReportInterval()
	if once {
		interval = 0
	}
	reportsDone := b.Reports.Start(reportCtx, interval)
	slog.Info("FIX analyzer operational", slog.Int("inputs", len(inputs)), slog.Bool("once", once))

	// 6. Feed every input, then drain. A reader blocked on stdin is abandoned
	// on shutdown; the inbox stays open so it can never send on a closed channel.
	feedDone := make(chan error, 1)
	go func() { feedDone <- feedAll(runCtx, p, inputs) }()

	var feedErr error
	select {
	case feedErr = <-feedDone:
		p.Close()
	case <-runCtx.Done():
	}
	err := <-pipeErr

	if !once && ctx.Err() == nil && err == nil && feedErr == nil {
		// inputs are exhausted; keep reporting until signalled
		<-ctx.Done()
	}
	slog.Info("Shutting down gracefully...")

	stopReports()
	<-reportsDone

	if cfg.Report.JSONDump != "" {
		if dumpErr := b.Reports.DumpJSON(cfg.Report.JSONDump); dumpErr != nil {
			slog.Error("Report dump failed", slog.Any("error", dumpErr))
		}
	}

	switch {
	case err != nil:
		slog.Error("Pipeline failed", slog.Any("error", err))
		return 1
	case feedErr != nil && !errors.Is(feedErr, context.Canceled):
		slog.Error("Input failed", slog.Any("error", feedErr))
		return 1
	}
	return 0
}

// feedAll reads every input concurrently. The first failing input stops the
// others.
func feedAll(ctx context.Context, p *engine.Pipeline, inputs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		path := in
		g.Go(func() error {
			return feedOne(gctx, p, path)
		})
	}
	return g.Wait()
}

func feedOne(ctx context.Context, p *engine.Pipeline, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if err := p.FeedReader(ctx, r); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Input exhausted", slog.String("input", path))
	return nil
}

// runSample ingests the built-in message with production-sized capacities
// and prints the report.
func runSample(w io.Writer) error {
	a := analyzer.New(16_384, 1<<20)
	if err := a.ProcessMessage([]byte(smokeMessage)); err != nil {
		return fmt.Errorf("sample message rejected: %w", err)
	}
	return a.WriteReport(w)
}
