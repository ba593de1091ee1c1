package interfaces

import (
	"context"
	"time"

	"intraday-accounting/internal/types"
)

// OrderLayer is the external execution collaborator. The engine only
// reports stop facts; the order layer owns submission and routing.
type OrderLayer interface {
	ReplaceStop(ctx context.Context, update types.StopUpdate) error
	SubmitExit(ctx context.Context, trigger types.StopTriggered) error
}

// FillFeed delivers brokerage executions in (time, seq) order per
// instrument. Next returns nil at end of stream.
type FillFeed interface {
	Next(ctx context.Context) (*types.Fill, error)
}

// Tick is one price observation from the market-data collaborator. Ticks
// must be time-monotonic per instrument.
type Tick struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

// PriceFeed delivers market ticks. Next returns nil at end of stream.
type PriceFeed interface {
	Next(ctx context.Context) (*Tick, error)
}
