package infra

import (
	"sync/atomic"
	"time"
)

// Metrics tracks ingestion pipeline throughput with atomic counters only, so
// workers can update it without coordinating.
type Metrics struct {
	// Counters
	batchesProcessed atomic.Uint64
	linesRead        atomic.Uint64
	bytesRead        atomic.Uint64
	malformedLines   atomic.Uint64
	readErrors       atomic.Uint64

	// Batch latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeWorkers atomic.Int32
}

// GlobalMetrics is the process-wide metrics instance.
var GlobalMetrics = &Metrics{}

// RecordBatch records one processed batch of lines with its latency.
func (m *Metrics) RecordBatch(lines, bytes int, latencyNs int64) {
	m.batchesProcessed.Add(1)
	m.linesRead.Add(uint64(lines))
	m.bytesRead.Add(uint64(bytes))
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordMalformed records a line that failed ingestion.
func (m *Metrics) RecordMalformed() {
	m.malformedLines.Add(1)
}

// RecordReadError records a failed input source.
func (m *Metrics) RecordReadError() {
	m.readErrors.Add(1)
}

func (m *Metrics) WorkerStarted() {
	m.activeWorkers.Add(1)
}

func (m *Metrics) WorkerStopped() {
	m.activeWorkers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	BatchesProcessed uint64
	LinesRead        uint64
	BytesRead        uint64
	MalformedLines   uint64
	ReadErrors       uint64
	AvgBatchNs       int64
	ActiveWorkers    int32
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		BatchesProcessed: m.batchesProcessed.Load(),
		LinesRead:        m.linesRead.Load(),
		BytesRead:        m.bytesRead.Load(),
		MalformedLines:   m.malformedLines.Load(),
		ReadErrors:       m.readErrors.Load(),
		AvgBatchNs:       avgLatency,
		ActiveWorkers:    m.activeWorkers.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.batchesProcessed.Store(0)
	m.linesRead.Store(0)
	m.bytesRead.Store(0)
	m.malformedLines.Store(0)
	m.readErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeWorkers.Store(0)
}
