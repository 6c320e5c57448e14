// Package symtab is a fixed-capacity, lock-free symbol table that keeps a
// running trade count and volume per symbol.
//
// Slots use open addressing with linear probing over a power-of-two array.
// Every field of a slot is an atomic. A slot moves through exactly three
// states:
//
//	empty     keyHash == 0
//	claimed   keyHash != 0, meta == 0   (a writer is copying the key)
//	published keyHash != 0, meta != 0   (key bytes are final)
//
// Only the goroutine whose CAS on keyHash succeeds writes the key bytes, and
// it publishes them with a store to meta. Readers load meta before touching
// the arena, so a published key is always seen whole.
package symtab

import (
	"math/bits"
	"runtime"
	"sync/atomic"

	"fix_analyzer/internal/arena"
	"fix_analyzer/internal/domain"
	"fix_analyzer/internal/fix"
)

const (
	// MinCapacity is the smallest slot count a table is built with.
	MinCapacity = 8

	// PublishSpins bounds how long Record waits for a claimed slot to be
	// published before treating it as a non-match and probing on.
	PublishSpins = 1000

	// MaxArenaBytes is the largest arena whose offsets fit the 32-bit half of meta.
	MaxArenaBytes = 1<<32 - 1

	// yieldEvery lets the claiming goroutine run when GOMAXPROCS is small.
	yieldEvery = 64
)

// slot is padded to a 64-byte cache line.
type slot struct {
	keyHash atomic.Uint64 // 0 = empty
	meta    atomic.Uint64 // off<<32 | len, 0 = not yet published
	count   atomic.Uint64
	volume  atomic.Uint64
	_       [32]byte
}

// Table maps decoded symbol bytes to count/volume counters.
type Table struct {
	slots []slot
	mask  uint64
	arena *arena.Arena
}

// New creates a table that tracks up to maxSymbols distinct symbols (rounded
// up to a power of two, at least MinCapacity) and stores their names in an
// arena of arenaBytes (clamped to MaxArenaBytes).
func New(maxSymbols, arenaBytes int) *Table {
	if arenaBytes > 0 && uint64(arenaBytes) > MaxArenaBytes {
		arenaBytes = MaxArenaBytes
	}
	n := nextPow2(maxSymbols)
	return &Table{
		slots: make([]slot, n),
		mask:  uint64(n - 1),
		arena: arena.New(arenaBytes),
	}
}

// nextPow2 returns the smallest power of two >= n, and at least MinCapacity.
func nextPow2(n int) int {
	if n <= MinCapacity {
		return MinCapacity
	}
	return 1 << bits.Len(uint(n-1))
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// ArenaUsed returns the bytes consumed by stored symbol names.
func (t *Table) ArenaUsed() int {
	return t.arena.Used()
}

// ArenaCap returns the arena byte budget.
func (t *Table) ArenaCap() int {
	return t.arena.Cap()
}

// Record adds one trade of qty to sym, inserting sym on first sight.
// It never blocks: a first-seen symbol costs one CAS and one arena copy, a
// known symbol costs two atomic adds.
func (t *Table) Record(sym fix.EscapedValue, qty uint64) error {
	raw := sym.Raw()
	hash, n := fix.Hash64(raw)
	if n == 0 {
		// zero-length keys cannot be stored; reject before claiming a slot
		return domain.NewParseError(domain.KindArenaFull, 0)
	}

	idx := hash & t.mask
	for probe := uint64(0); probe <= t.mask; probe++ {
		s := &t.slots[idx]

		existing := s.keyHash.Load()
		if existing == 0 {
			if t.arena.Cap()-t.arena.Used() < n {
				// a key that cannot fit would leave the slot claimed forever
				return domain.NewParseError(domain.KindArenaFull, 0)
			}
			if s.keyHash.CompareAndSwap(0, hash) {
				return t.publish(s, raw, n, qty)
			}
			// lost the race; whoever won may have inserted this very key
			existing = s.keyHash.Load()
		}

		if existing == hash && t.matches(s, raw) {
			s.count.Add(1)
			s.volume.Add(qty)
			return nil
		}

		idx = (idx + 1) & t.mask
	}
	return domain.NewParseError(domain.KindTableFull, 0)
}

// publish runs on the goroutine that claimed s. It copies the decoded key into
// the arena, seeds the counters and then publishes meta, so a reader that sees
// meta also sees the key bytes and a count of at least 1.
func (t *Table) publish(s *slot, raw []byte, n int, qty uint64) error {
	off, ok := t.arena.Alloc(n)
	if !ok {
		// lost a race for the last arena bytes; the slot stays claimed and
		// unpublished and readers skip it
		return domain.NewParseError(domain.KindArenaFull, 0)
	}
	dst, ok := t.arena.GetMut(off, n)
	if !ok {
		return domain.NewParseError(domain.KindArenaFull, 0)
	}
	fix.DecodeInto(raw, dst)

	s.count.Add(1)
	s.volume.Add(qty)
	s.meta.Store(packMeta(off, n))
	return nil
}

// matches waits briefly for s to be published and compares its stored key
// with raw. A slot that stays unpublished past the spin bound is a non-match.
func (t *Table) matches(s *slot, raw []byte) bool {
	meta := waitMeta(&s.meta)
	if meta == 0 {
		return false
	}
	stored, ok := t.arena.Get(unpackMeta(meta))
	if !ok {
		return false
	}
	return fix.EscapedEqual(raw, stored)
}

func waitMeta(m *atomic.Uint64) uint64 {
	v := m.Load()
	for spins := 1; v == 0 && spins <= PublishSpins; spins++ {
		if spins%yieldEvery == 0 {
			runtime.Gosched()
		}
		v = m.Load()
	}
	return v
}

// Len counts published slots.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].meta.Load() != 0 {
			n++
		}
	}
	return n
}

// Snapshot returns one row per published slot, in slot order. Slots that are
// being inserted right now are skipped rather than waited on, so the result is
// a best-effort view and never contains a partially written key.
func (t *Table) Snapshot() []domain.SymbolStat {
	return t.SnapshotInto(make([]domain.SymbolStat, 0, 16))
}

// SnapshotInto appends the rows to dst and returns it.
func (t *Table) SnapshotInto(dst []domain.SymbolStat) []domain.SymbolStat {
	t.Each(func(symbol []byte, count, volume uint64) {
		dst = append(dst, domain.SymbolStat{
			Symbol: string(symbol),
			Count:  count,
			Volume: volume,
		})
	})
	return dst
}

// Each calls fn for every published slot in slot order. symbol aliases the
// arena and must not be modified or retained.
func (t *Table) Each(fn func(symbol []byte, count, volume uint64)) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.keyHash.Load() == 0 {
			continue
		}
		meta := s.meta.Load()
		if meta == 0 {
			continue
		}
		stored, ok := t.arena.Get(unpackMeta(meta))
		if !ok {
			continue
		}
		fn(stored, s.count.Load(), s.volume.Load())
	}
}

// packMeta never returns 0 for n > 0, which keeps 0 free as "unpublished".
func packMeta(off, n int) uint64 {
	return uint64(off)<<32 | uint64(uint32(n))
}

func unpackMeta(meta uint64) (int, int) {
	return int(meta >> 32), int(uint32(meta))
}
