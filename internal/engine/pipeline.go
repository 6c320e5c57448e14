// Package engine moves raw FIX lines from readers to a pool of ingestion
// workers.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"fix_analyzer/internal/domain"
	"fix_analyzer/internal/event"
	"fix_analyzer/internal/infra"

	"golang.org/x/sync/errgroup"
)

// PipelineConfig sizes the pipeline. Zero values fall back to defaults.
type PipelineConfig struct {
	Workers      int
	BatchSize    int
	InboxSize    int
	MaxLineBytes int

	// Metrics receives per-batch throughput; nil uses infra.GlobalMetrics.
	Metrics *infra.Metrics
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = event.DefaultBatchLines
	}
	if c.InboxSize < 0 {
		c.InboxSize = 0
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = 64 << 10
	}
	if c.Metrics == nil {
		c.Metrics = infra.GlobalMetrics
	}
	return c
}

// Pipeline fans line batches out to workers that feed one shared Ingester.
// Workers never coordinate with each other; ordering across batches is not
// preserved and does not need to be, since the analyzer only keeps counters.
type Pipeline struct {
	ing         domain.Ingester
	cfg         PipelineConfig
	inbox       chan *event.Batch
	onMalformed func(error)

	closeOnce sync.Once
}

// NewPipeline creates a pipeline over ing. onMalformed is called from worker
// goroutines for every rejected line and may be nil.
func NewPipeline(ing domain.Ingester, cfg PipelineConfig, onMalformed func(error)) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		ing:         ing,
		cfg:         cfg,
		inbox:       make(chan *event.Batch, cfg.InboxSize),
		onMalformed: onMalformed,
	}
}

// Inbox returns the batch channel. Producers send batches here; the worker
// that drains a batch releases it to the pool.
func (p *Pipeline) Inbox() chan<- *event.Batch {
	return p.inbox
}

// Close tells the workers that no more batches will arrive. Run returns once
// the inbox is drained. Safe to call more than once.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() { close(p.inbox) })
}

// Run starts the workers and blocks until the inbox is closed and drained, ctx
// is cancelled, or a worker fails. A cancelled ctx is not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("Pipeline started", slog.Int("workers", p.cfg.Workers), slog.Int("batch_size", p.cfg.BatchSize))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			return p.worker(gctx, id)
		})
	}

	err := g.Wait()
	slog.Info("Pipeline stopped", slog.Any("error", err))
	return err
}

func (p *Pipeline) worker(ctx context.Context, id int) (err error) {
	m := p.cfg.Metrics
	m.WorkerStarted()
	defer m.WorkerStopped()

	var current *event.Batch
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED",
				slog.Int("worker", id),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("worker %d halted: %v", id, r)
		}
		event.ReleaseBatch(current)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-p.inbox:
			if !ok {
				return nil
			}
			current = b
			p.process(b)
			event.ReleaseBatch(b)
			current = nil
		}
	}
}

func (p *Pipeline) process(b *event.Batch) {
	start := time.Now()
	for i := 0; i < b.Len(); i++ {
		p.ing.ProcessMessageLossy(b.Line(i), p.onMalformed)
	}
	p.cfg.Metrics.RecordBatch(b.Len(), b.Bytes(), time.Since(start).Nanoseconds())
}

// FeedReader reads newline-delimited messages from r into batches and sends
// them to the inbox. Trailing '\r' is trimmed and blank lines are skipped.
// It returns at EOF, on a read error, or when ctx is cancelled. A line longer
// than MaxLineBytes aborts the reader with bufio.ErrTooLong.
func (p *Pipeline) FeedReader(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, p.cfg.MaxLineBytes)), p.cfg.MaxLineBytes)

	batch := event.AcquireBatch(p.cfg.BatchSize)
	for sc.Scan() {
		line := bytes.TrimSuffix(sc.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if !batch.Append(line) {
			if err := p.send(ctx, batch); err != nil {
				return err
			}
			batch = event.AcquireBatch(p.cfg.BatchSize)
			batch.Append(line)
		}
	}

	if err := sc.Err(); err != nil {
		event.ReleaseBatch(batch)
		p.cfg.Metrics.RecordReadError()
		return fmt.Errorf("read input: %w", err)
	}
	if batch.Len() == 0 {
		event.ReleaseBatch(batch)
		return nil
	}
	return p.send(ctx, batch)
}

// send hands b to the workers, or releases it if ctx ends first.
func (p *Pipeline) send(ctx context.Context, b *event.Batch) error {
	select {
	case <-ctx.Done():
		event.ReleaseBatch(b)
		return ctx.Err()
	case p.inbox <- b:
		return nil
	}
}
