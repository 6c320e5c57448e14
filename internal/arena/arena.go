// Package arena implements a fixed-size, append-only byte arena shared by
// concurrent writers.
//
// Alloc hands out disjoint [off, off+n) ranges by advancing a single atomic
// cursor. A range is written once, by the goroutine that allocated it, and
// must be published through some other atomic before anyone else reads it.
// The arena itself orders nothing.
package arena

import (
	"sync/atomic"
)

// Arena is a monotonic bump allocator over a fixed buffer. Space is never
// reclaimed.
type Arena struct {
	buf  []byte
	next atomic.Uint64
}

// New creates an arena of capacity bytes. A negative capacity is treated as 0.
func New(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{buf: make([]byte, capacity)}
}

// Alloc reserves n contiguous bytes and returns their offset. It fails without
// blocking when n is not positive or the buffer cannot fit n more bytes.
func (a *Arena) Alloc(n int) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	size := uint64(len(a.buf))
	for {
		cur := a.next.Load()
		end := cur + uint64(n)
		if end < cur || end > size {
			return 0, false
		}
		if a.next.CompareAndSwap(cur, end) {
			return int(cur), true
		}
	}
}

// Get returns a read view of [off, off+n) if it lies within the buffer.
func (a *Arena) Get(off, n int) ([]byte, bool) {
	if !a.inBounds(off, n) {
		return nil, false
	}
	return a.buf[off : off+n : off+n], true
}

// GetMut returns a writable view of [off, off+n). Only the goroutine that
// received off from Alloc may write through it, and only before publishing.
func (a *Arena) GetMut(off, n int) ([]byte, bool) {
	return a.Get(off, n)
}

func (a *Arena) inBounds(off, n int) bool {
	if off < 0 || n < 0 {
		return false
	}
	end := off + n
	return end >= off && end <= len(a.buf)
}

// Cap returns the total byte budget.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Used returns how many bytes have been handed out so far.
func (a *Arena) Used() int {
	return int(a.next.Load())
}
