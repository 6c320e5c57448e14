// Package event holds the pooled units of work that flow from line readers to
// ingestion workers.
package event

import (
	"sync"
)

const (
	// DefaultBatchLines is the line capacity of a pooled batch.
	DefaultBatchLines = 256

	// defaultBatchBytes is the initial size of a batch's backing buffer. It
	// grows on demand and keeps its size across reuse.
	defaultBatchBytes = 32 << 10

	// maxPooledBytes keeps one pathological batch from pinning a huge buffer.
	maxPooledBytes = 4 << 20
)

// Batch is a group of raw message lines stored back to back in one buffer.
// Lines returned by Line alias the buffer and are valid until ReleaseBatch.
type Batch struct {
	buf   []byte
	ends  []int
	limit int
}

// Append copies line into the batch. It returns false once the batch holds
// its line limit; the caller should send it and start a new one.
func (b *Batch) Append(line []byte) bool {
	if len(b.ends) >= b.limit {
		return false
	}
	b.buf = append(b.buf, line...)
	b.ends = append(b.ends, len(b.buf))
	return true
}

// Len returns the number of lines in the batch.
func (b *Batch) Len() int {
	return len(b.ends)
}

// Full reports whether another Append would be refused.
func (b *Batch) Full() bool {
	return len(b.ends) >= b.limit
}

// Bytes returns the total payload size of the batch.
func (b *Batch) Bytes() int {
	return len(b.buf)
}

// Line returns the i-th line. The slice is capped so appending to it cannot
// overwrite the next line.
func (b *Batch) Line(i int) []byte {
	start := 0
	if i > 0 {
		start = b.ends[i-1]
	}
	end := b.ends[i]
	return b.buf[start:end:end]
}

func (b *Batch) reset(limit int) {
	if limit <= 0 {
		limit = DefaultBatchLines
	}
	b.buf = b.buf[:0]
	b.ends = b.ends[:0]
	b.limit = limit
}

// batchPool provides sync.Pool for batch reuse so steady-state ingestion
// does not allocate per line.
var batchPool = sync.Pool{
	New: func() interface{} {
		return &Batch{
			buf:   make([]byte, 0, defaultBatchBytes),
			ends:  make([]int, 0, DefaultBatchLines),
			limit: DefaultBatchLines,
		}
	},
}

// AcquireBatch gets an empty batch that accepts up to limit lines
// (DefaultBatchLines when limit <= 0).
func AcquireBatch(limit int) *Batch {
	b := batchPool.Get().(*Batch)
	b.reset(limit)
	return b
}

// ReleaseBatch returns a batch to the pool. The batch and every line taken
// from it must not be used afterwards.
func ReleaseBatch(b *Batch) {
	if b == nil {
		return
	}
	if cap(b.buf) > maxPooledBytes {
		return
	}
	b.reset(DefaultBatchLines)
	batchPool.Put(b)
}

// Warmup pre-allocates batches to reduce GC pressure at startup.
func Warmup(n int) {
	if n <= 0 {
		n = 16
	}
	batches := make([]*Batch, 0, n)
	for i := 0; i < n; i++ {
		batches = append(batches, AcquireBatch(0))
	}
	for _, b := range batches {
		ReleaseBatch(b)
	}
}
