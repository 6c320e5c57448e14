package domain

import (
	"context"
	"io"
)

// Ingester accepts raw FIX messages and never fails; errors go to onError.
type Ingester interface {
	ProcessMessageLossy(raw []byte, onError func(error))
}

// ReportSource produces the compliance report in text and structured form.
type ReportSource interface {
	WriteReport(w io.Writer) error
	Snapshot() Report
}

// ReportArchiver persists structured report snapshots.
type ReportArchiver interface {
	SaveReport(ctx context.Context, r Report) error
}
