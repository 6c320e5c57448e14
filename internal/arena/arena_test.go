package arena

import (
	"sort"
	"sync"
	"testing"
)

func TestAlloc_Sequential(t *testing.T) {
	a := New(16)

	off, ok := a.Alloc(4)
	if !ok || off != 0 {
		t.Fatalf("first Alloc = %d,%v; want 0,true", off, ok)
	}
	off, ok = a.Alloc(12)
	if !ok || off != 4 {
		t.Fatalf("second Alloc = %d,%v; want 4,true", off, ok)
	}
	if _, ok := a.Alloc(1); ok {
		t.Fatal("Alloc past capacity should fail")
	}
	if a.Used() != 16 || a.Cap() != 16 {
		t.Errorf("Used/Cap = %d/%d", a.Used(), a.Cap())
	}
}

func TestAlloc_RejectsZeroAndNegative(t *testing.T) {
	a := New(8)
	if _, ok := a.Alloc(0); ok {
		t.Error("zero-length Alloc should fail")
	}
	if _, ok := a.Alloc(-1); ok {
		t.Error("negative Alloc should fail")
	}
	if a.Used() != 0 {
		t.Errorf("rejected Alloc moved the cursor to %d", a.Used())
	}
}

func TestAlloc_FailureDoesNotConsume(t *testing.T) {
	a := New(8)
	if _, ok := a.Alloc(9); ok {
		t.Fatal("oversized Alloc should fail")
	}
	if off, ok := a.Alloc(8); !ok || off != 0 {
		t.Fatalf("Alloc(8) after failure = %d,%v", off, ok)
	}
}

func TestGet_Bounds(t *testing.T) {
	a := New(8)
	off, _ := a.Alloc(3)
	w, ok := a.GetMut(off, 3)
	if !ok {
		t.Fatal("GetMut in bounds failed")
	}
	copy(w, "abc")

	r, ok := a.Get(off, 3)
	if !ok || string(r) != "abc" {
		t.Errorf("Get = %q,%v", r, ok)
	}

	bad := []struct{ off, n int }{{6, 3}, {-1, 2}, {0, -1}, {9, 0}, {int(^uint(0) >> 1), 2}}
	for _, b := range bad {
		if _, ok := a.Get(b.off, b.n); ok {
			t.Errorf("Get(%d, %d) should be out of bounds", b.off, b.n)
		}
	}
}

func TestGet_ViewCannotGrowIntoNeighbour(t *testing.T) {
	a := New(8)
	off, _ := a.Alloc(2)
	v, _ := a.Get(off, 2)
	if cap(v) != 2 {
		t.Errorf("view capacity = %d, want 2", cap(v))
	}
}

func TestAlloc_ConcurrentRangesAreDisjoint(t *testing.T) {
	const (
		goroutines = 8
		perG       = 500
		size       = 3
	)
	a := New(goroutines * perG * size)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		offs []int
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(tag byte) {
			defer wg.Done()
			local := make([]int, 0, perG)
			for i := 0; i < perG; i++ {
				off, ok := a.Alloc(size)
				if !ok {
					t.Error("Alloc failed before capacity was reached")
					return
				}
				w, _ := a.GetMut(off, size)
				for j := range w {
					w[j] = tag
				}
				local = append(local, off)
			}
			mu.Lock()
			offs = append(offs, local...)
			mu.Unlock()
		}(byte(g + 1))
	}
	wg.Wait()

	sort.Ints(offs)
	for i := 1; i < len(offs); i++ {
		if offs[i]-offs[i-1] < size {
			t.Fatalf("overlapping ranges at %d and %d", offs[i-1], offs[i])
		}
	}
	for _, off := range offs {
		r, _ := a.Get(off, size)
		if r[0] != r[1] || r[1] != r[2] {
			t.Fatalf("range %d was written by more than one goroutine: %v", off, r)
		}
	}
	if _, ok := a.Alloc(1); ok {
		t.Error("arena should be exactly full")
	}
}
