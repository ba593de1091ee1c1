package interfaces

import (
	"context"
	"time"

	"intraday-accounting/internal/analytics"
	"intraday-accounting/internal/types"
)

// Accounting is the position accounting and trailing-stop engine exposed to
// the driving loop. Implementations are single-writer per instrument; the
// driving loop calls synchronously.
type Accounting interface {
	RecordFill(ctx context.Context, fill types.Fill) (*types.MatchResult, error)
	UpdatePrice(ctx context.Context, symbol string, price float64, ts time.Time) (*types.StopUpdate, *types.StopTriggered, error)
	Snapshot(ctx context.Context, symbol string) (*types.PositionSnapshot, error)
	SessionReport(ctx context.Context, since time.Time) (*analytics.Report, error)
	Rebuild(ctx context.Context) error
	Close() error
}
