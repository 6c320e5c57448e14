// Package analyzer aggregates FIX trade messages into live compliance
// statistics.
//
// A TradeAnalyzer is built once with fixed capacities and shared by pointer
// between any number of ingesting and reporting goroutines. Ingestion only
// touches atomics; reporting only loads them. Neither side ever waits on the
// other.
package analyzer

import (
	"io"
	"strconv"
	"sync/atomic"

	"fix_analyzer/internal/domain"
	"fix_analyzer/internal/fix"
	"fix_analyzer/internal/symtab"
)

const (
	reportHeader  = "=== Compliance Report ===\n"
	symbolsHeader = "\n=== Volume by Symbol ===\n"
)

// TradeAnalyzer is a lock-free, bounded-memory aggregator. It keeps no
// messages, only counters, and its memory is fixed at construction.
type TradeAnalyzer struct {
	totalMessages     atomic.Uint64
	malformedMessages atomic.Uint64
	sideBuy           atomic.Uint64
	sideSell          atomic.Uint64

	symbols *symtab.Table
}

// New creates an analyzer. maxSymbols bounds the distinct symbols tracked;
// arenaBytes bounds the total bytes of their decoded names.
func New(maxSymbols, arenaBytes int) *TradeAnalyzer {
	return &TradeAnalyzer{
		symbols: symtab.New(maxSymbols, arenaBytes),
	}
}

// ProcessMessage parses and ingests one message.
//
// Parse errors leave every counter untouched. A capacity error from the
// symbol table (ArenaFull, TableFull) is returned after the message and side
// totals were counted. After warm-up (all symbols seen) it does not allocate.
func (a *TradeAnalyzer) ProcessMessage(raw []byte) error {
	msg, err := fix.ParseMessage(raw)
	if err != nil {
		return err
	}

	a.totalMessages.Add(1)
	switch msg.Side {
	case domain.SideBuy:
		a.sideBuy.Add(1)
	case domain.SideSell:
		a.sideSell.Add(1)
	}

	return a.symbols.Record(msg.Symbol, msg.Quantity)
}

// ProcessMessageLossy ingests raw and never fails: an error bumps the
// malformed counter and is handed to onError, which may be nil.
func (a *TradeAnalyzer) ProcessMessageLossy(raw []byte, onError func(error)) {
	if err := a.ProcessMessage(raw); err != nil {
		a.malformedMessages.Add(1)
		if onError != nil {
			onError(err)
		}
	}
}

func (a *TradeAnalyzer) TotalMessages() uint64 {
	return a.totalMessages.Load()
}

func (a *TradeAnalyzer) MalformedMessages() uint64 {
	return a.malformedMessages.Load()
}

func (a *TradeAnalyzer) SideBuy() uint64 {
	return a.sideBuy.Load()
}

func (a *TradeAnalyzer) SideSell() uint64 {
	return a.sideSell.Load()
}

// Stats loads the four global counters independently.
func (a *TradeAnalyzer) Stats() domain.Counters {
	return domain.Counters{
		TotalMessages:     a.totalMessages.Load(),
		MalformedMessages: a.malformedMessages.Load(),
		SideBuy:           a.sideBuy.Load(),
		SideSell:          a.sideSell.Load(),
	}
}

// SymbolCount returns the number of published symbols.
func (a *TradeAnalyzer) SymbolCount() int {
	return a.symbols.Len()
}

// SymbolCapacity returns the number of symbol slots.
func (a *TradeAnalyzer) SymbolCapacity() int {
	return a.symbols.Capacity()
}

// ArenaUsage returns the used and total bytes of the symbol arena.
func (a *TradeAnalyzer) ArenaUsage() (used, total int) {
	return a.symbols.ArenaUsed(), a.symbols.ArenaCap()
}

// Snapshot returns the counters and symbol rows as a structured report.
// Like the text report it is best-effort, not linearizable.
func (a *TradeAnalyzer) Snapshot() domain.Report {
	return domain.Report{
		Counters: a.Stats(),
		Symbols:  a.symbols.Snapshot(),
	}
}

// AppendReport appends the text report to dst. Symbol names are copied
// straight from the arena, so with a large enough dst it does not allocate.
func (a *TradeAnalyzer) AppendReport(dst []byte) []byte {
	dst = append(dst, reportHeader...)
	dst = appendCounter(dst, "total_messages: ", a.totalMessages.Load())
	dst = appendCounter(dst, "malformed_messages: ", a.malformedMessages.Load())
	dst = appendCounter(dst, "side_buy: ", a.sideBuy.Load())
	dst = appendCounter(dst, "side_sell: ", a.sideSell.Load())

	dst = append(dst, symbolsHeader...)
	a.symbols.Each(func(symbol []byte, count, volume uint64) {
		dst = append(dst, symbol...)
		dst = append(dst, " count="...)
		dst = strconv.AppendUint(dst, count, 10)
		dst = append(dst, " volume="...)
		dst = strconv.AppendUint(dst, volume, 10)
		dst = append(dst, '\n')
	})
	return dst
}

func appendCounter(dst []byte, label string, v uint64) []byte {
	dst = append(dst, label...)
	dst = strconv.AppendUint(dst, v, 10)
	return append(dst, '\n')
}

// WriteReport writes the text report to w.
func (a *TradeAnalyzer) WriteReport(w io.Writer) error {
	_, err := w.Write(a.AppendReport(make([]byte, 0, 256)))
	return err
}

// ReportString returns the text report.
func (a *TradeAnalyzer) ReportString() string {
	return string(a.AppendReport(make([]byte, 0, 256)))
}
