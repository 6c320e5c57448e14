package domain

import (
	"time"
)

// ReportRecord is one archived compliance report header.
type ReportRecord struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	TotalMessages     uint64         `json:"total_messages"`
	MalformedMessages uint64         `json:"malformed_messages"`
	SideBuy           uint64         `json:"side_buy"`
	SideSell          uint64         `json:"side_sell"`
	Symbols           []SymbolRecord `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"symbols"`
}

// SymbolRecord is one symbol row of an archived report. AvgQty is the decimal
// string of volume/count so it survives the round trip without float error.
type SymbolRecord struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	ReportID uint   `gorm:"index" json:"-"`
	Symbol   string `gorm:"index" json:"symbol"`
	Count    uint64 `json:"count"`
	Volume   uint64 `json:"volume"`
	AvgQty   string `json:"avg_qty"`
}

// NewReportRecord converts a live snapshot into an archive row.
func NewReportRecord(r Report, at time.Time) *ReportRecord {
	rec := &ReportRecord{
		CreatedAt:         at,
		TotalMessages:     r.TotalMessages,
		MalformedMessages: r.MalformedMessages,
		SideBuy:           r.SideBuy,
		SideSell:          r.SideSell,
		Symbols:           make([]SymbolRecord, 0, len(r.Symbols)),
	}
	for _, s := range r.Symbols {
		rec.Symbols = append(rec.Symbols, SymbolRecord{
			Symbol: s.Symbol,
			Count:  s.Count,
			Volume: s.Volume,
			AvgQty: s.AvgQty().String(),
		})
	}
	return rec
}

// Report converts an archive row back into the structured report form.
func (r *ReportRecord) Report() Report {
	out := Report{
		Counters: Counters{
			TotalMessages:     r.TotalMessages,
			MalformedMessages: r.MalformedMessages,
			SideBuy:           r.SideBuy,
			SideSell:          r.SideSell,
		},
		Symbols: make([]SymbolStat, 0, len(r.Symbols)),
	}
	for _, s := range r.Symbols {
		out.Symbols = append(out.Symbols, SymbolStat{Symbol: s.Symbol, Count: s.Count, Volume: s.Volume})
	}
	return out
}
