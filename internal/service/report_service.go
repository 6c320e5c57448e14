package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"fix_analyzer/internal/domain"

	"github.com/sugawarayuuta/sonnet"
)

// ReportService emits compliance reports from a live source to a writer and,
// optionally, to an archive. Emission only reads the source, so it can run at
// any rate alongside ingestion.
type ReportService struct {
	mu    sync.Mutex // serializes writes to out
	src   domain.ReportSource
	out   io.Writer
	store domain.ReportArchiver

	emitted uint64
}

// NewReportService creates a report service. store may be nil.
func NewReportService(src domain.ReportSource, out io.Writer, store domain.ReportArchiver) *ReportService {
	return &ReportService{
		src:   src,
		out:   out,
		store: store,
	}
}

// Emit writes one text report and archives the structured snapshot when a
// store is configured. A failed archive does not undo the written report.
func (s *ReportService) Emit(ctx context.Context) error {
	s.mu.Lock()
	err := s.src.WriteReport(s.out)
	s.emitted++
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveReport(ctx, s.src.Snapshot()); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	return nil
}

// Emitted returns how many reports were written.
func (s *ReportService) Emitted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

// Start emits a report every interval until ctx is cancelled, then emits a
// final one. The returned channel is closed after the final report.
// An interval <= 0 skips the periodic reports and keeps only the final one.
func (s *ReportService) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				// ctx is already cancelled; the final archive write gets its own deadline
				finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Emit(finalCtx); err != nil {
					slog.Error("Final report failed", slog.Any("error", err))
				}
				cancel()
				return
			case <-tick:
				if err := s.Emit(ctx); err != nil {
					slog.Warn("Periodic report failed", slog.Any("error", err))
				}
			}
		}
	}()
	return done
}

// DumpJSON writes the structured snapshot to filename for post-mortem and
// tooling use.
func (s *ReportService) DumpJSON(filename string) error {
	snap := s.src.Snapshot()
	dump := struct {
		Counters    domain.Counters `json:"counters"`
		TotalVolume uint64          `json:"total_volume"`
		Symbols     []jsonSymbol    `json:"symbols"`
		DumpedAt    time.Time       `json:"dumped_at"`
	}{
		Counters:    snap.Counters,
		TotalVolume: snap.TotalVolume(),
		Symbols:     make([]jsonSymbol, 0, len(snap.Symbols)),
		DumpedAt:    time.Now().UTC(),
	}
	for _, r := range snap.Symbols {
		dump.Symbols = append(dump.Symbols, jsonSymbol{
			Symbol: r.Symbol,
			Count:  r.Count,
			Volume: r.Volume,
			AvgQty: r.AvgQty().String(),
		})
	}

	b, err := sonnet.Marshal(dump)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("write report dump: %w", err)
	}
	slog.Info("Report dumped", slog.String("file", filename), slog.Int("symbols", len(dump.Symbols)))
	return nil
}

type jsonSymbol struct {
	Symbol string `json:"symbol"`
	Count  uint64 `json:"count"`
	Volume uint64 `json:"volume"`
	AvgQty string `json:"avg_qty"`
}
