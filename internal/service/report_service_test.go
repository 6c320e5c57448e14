package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fix_analyzer/internal/analyzer"
	"fix_analyzer/internal/domain"

	"github.com/sugawarayuuta/sonnet"
)

const msgAAPL = "8=FIX.4.2|35=D|11=ORD001|55=AAPL|54=1|38=100|52=20240115-09:30:00.123456|10=128|"

type memArchive struct {
	mu      sync.Mutex
	reports []domain.Report
	err     error
}

func (m *memArchive) SaveReport(_ context.Context, r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *memArchive) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// syncBuffer guards bytes.Buffer for the periodic emitter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReportService_Emit(t *testing.T) {
	a := analyzer.New(64, 1024)
	_ = a.ProcessMessage([]byte(msgAAPL))

	var out bytes.Buffer
	store := &memArchive{}
	svc := NewReportService(a, &out, store)

	if err := svc.Emit(context.Background()); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if out.String() != a.ReportString() {
		t.Errorf("emitted report differs:\n%s", out.String())
	}
	if store.len() != 1 {
		t.Fatalf("expected 1 archived report, got %d", store.len())
	}
	if r, ok := store.reports[0].Find("AAPL"); !ok || r.Volume != 100 {
		t.Errorf("archived row = %+v", r)
	}
	if svc.Emitted() != 1 {
		t.Errorf("Emitted() = %d", svc.Emitted())
	}
}

func TestReportService_EmitWithoutStore(t *testing.T) {
	a := analyzer.New(8, 64)
	var out bytes.Buffer
	svc := NewReportService(a, &out, nil)

	if err := svc.Emit(context.Background()); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "=== Compliance Report ===") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestReportService_ArchiveErrorIsReported(t *testing.T) {
	a := analyzer.New(8, 64)
	var out bytes.Buffer
	store := &memArchive{err: errors.New("disk full")}
	svc := NewReportService(a, &out, store)

	err := svc.Emit(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected archive error, got %v", err)
	}
	if out.Len() == 0 {
		t.Error("text report should be written before archiving")
	}
}

func TestReportService_StartEmitsFinalReport(t *testing.T) {
	a := analyzer.New(64, 1024)
	out := &syncBuffer{}
	store := &memArchive{}
	svc := NewReportService(a, out, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.Start(ctx, 10*time.Millisecond)

	_ = a.ProcessMessage([]byte(msgAAPL))
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop after cancel")
	}

	if svc.Emitted() < 2 {
		t.Errorf("expected periodic plus final reports, got %d", svc.Emitted())
	}
	if !strings.HasSuffix(out.String(), "AAPL count=1 volume=100\n") {
		t.Errorf("final report missing AAPL row:\n%s", out.String())
	}
	if uint64(store.len()) != svc.Emitted() {
		t.Errorf("archived %d, emitted %d", store.len(), svc.Emitted())
	}
}

func TestReportService_StartWithoutInterval(t *testing.T) {
	a := analyzer.New(8, 64)
	out := &syncBuffer{}
	svc := NewReportService(a, out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.Start(ctx, 0)
	cancel()
	<-done

	if svc.Emitted() != 1 {
		t.Errorf("expected only the final report, got %d", svc.Emitted())
	}
}

func TestReportService_DumpJSON(t *testing.T) {
	a := analyzer.New(64, 1024)
	_ = a.ProcessMessage([]byte(msgAAPL))
	_ = a.ProcessMessage([]byte(msgAAPL))
	svc := NewReportService(a, &bytes.Buffer{}, nil)

	path := filepath.Join(t.TempDir(), "report.json")
	if err := svc.DumpJSON(path); err != nil {
		t.Fatalf("DumpJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Counters    domain.Counters `json:"counters"`
		TotalVolume uint64          `json:"total_volume"`
		Symbols     []jsonSymbol    `json:"symbols"`
	}
	if err := sonnet.Unmarshal(data, &got); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	if got.Counters.TotalMessages != 2 || got.TotalVolume != 200 {
		t.Errorf("dump = %+v", got)
	}
	if len(got.Symbols) != 1 || got.Symbols[0].AvgQty != "100" {
		t.Errorf("symbols = %+v", got.Symbols)
	}
}
