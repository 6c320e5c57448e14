package domain

import "github.com/shopspring/decimal"

// SymbolStat is one row of the per-symbol section of a report.
type SymbolStat struct {
	Symbol string `json:"symbol"`
	Count  uint64 `json:"count"`
	Volume uint64 `json:"volume"`
}

// AvgQty returns volume/count rounded to 4 places, or zero for an empty row.
// Counts and volumes are read independently, so under concurrent ingestion the
// ratio is approximate.
func (s SymbolStat) AvgQty() decimal.Decimal {
	if s.Count == 0 {
		return decimal.Zero
	}
	vol := decimal.NewFromUint64(s.Volume)
	return vol.Div(decimal.NewFromUint64(s.Count)).Round(4)
}

// Counters are the global message totals. Each field is loaded independently;
// no cross-counter consistency is implied.
type Counters struct {
	TotalMessages     uint64 `json:"total_messages"`
	MalformedMessages uint64 `json:"malformed_messages"`
	SideBuy           uint64 `json:"side_buy"`
	SideSell          uint64 `json:"side_sell"`
}

// Report is a structured, best-effort point-in-time view of the analyzer.
type Report struct {
	Counters
	Symbols []SymbolStat `json:"symbols"`
}

// TotalVolume sums the volume of all rows.
func (r Report) TotalVolume() uint64 {
	var v uint64
	for _, s := range r.Symbols {
		v += s.Volume
	}
	return v
}

// Find returns the row for symbol, if present.
func (r Report) Find(symbol string) (SymbolStat, bool) {
	for _, s := range r.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolStat{}, false
}
