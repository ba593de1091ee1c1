package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Fill is a brokerage-confirmed execution. Immutable once reported.
// Seq is the server-assigned sequence number used to break timestamp ties.
type Fill struct {
	Instrument string    `json:"instrument"`
	Side       Side      `json:"side"`
	Qty        int64     `json:"qty"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
	Seq        int64     `json:"seq"`
	OrderID    string    `json:"order_id"`
}

// Lot is the unmatched remainder of a single entry fill. Side is the side of
// the position it belongs to (Buy for long lots, Sell for short lots).
// Remaining only ever decreases.
type Lot struct {
	Instrument string    `json:"instrument"`
	Side       Side      `json:"side"`
	Remaining  int64     `json:"remaining"`
	EntryPrice float64   `json:"entry_price"`
	OpenTime   time.Time `json:"open_time"`
}

// RealizedTrade is booked when an exit fill matches against a lot.
// PnL is qty*(exit-entry) for long lots, sign inverted for short lots,
// rounded to the instrument's price increment.
type RealizedTrade struct {
	Instrument string    `json:"instrument"`
	Side       Side      `json:"side"`
	Qty        int64     `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
}

// MatchResult is the outcome of applying one fill: zero or more realized
// trades, plus the lot the fill opened (entry fills, or the residual of an
// exit that reversed the position through flat).
type MatchResult struct {
	Realized []RealizedTrade `json:"realized,omitempty"`
	Opened   *Lot            `json:"opened,omitempty"`
	Reversed bool            `json:"reversed,omitempty"`
}

type StopState string

const (
	StopInactive StopState = "INACTIVE"
	StopActive   StopState = "ACTIVE"
	StopTripped  StopState = "TRIGGERED"
	StopClosed   StopState = "CLOSED"
)

// StopParams are the trailing-stop thresholds for one position. Percentages
// are fractions (0.02 = 2%), MinTick is the instrument's price increment.
type StopParams struct {
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	ActivationPct float64 `yaml:"activation_pct" json:"activation_pct"`
	TrailingPct   float64 `yaml:"trailing_pct" json:"trailing_pct"`
	MinMovePct    float64 `yaml:"min_move_pct" json:"min_move_pct"`
	MinTick       float64 `yaml:"min_tick" json:"min_tick"`
}

// StopUpdate is emitted when the protective stop price moves. The order
// layer uses it to replace the resting stop order.
type StopUpdate struct {
	Instrument string    `json:"instrument"`
	OldStop    float64   `json:"old_stop"`
	NewStop    float64   `json:"new_stop"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

// StopTriggered is emitted exactly once when price crosses the stop against
// the position. The order layer decides how to exit.
type StopTriggered struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	StopPrice  float64   `json:"stop_price"`
	Time       time.Time `json:"time"`
}

// StopSnapshot is the tracker's view of one position's stop machine.
type StopSnapshot struct {
	State        StopState  `json:"state"`
	EntryPrice   float64    `json:"entry_price"`
	ExtremePrice float64    `json:"extreme_price"`
	StopPrice    float64    `json:"stop_price"`
	Params       StopParams `json:"params"`
}

// PositionSnapshot is the aggregate per-instrument view.
type PositionSnapshot struct {
	Instrument    string       `json:"instrument"`
	Side          Side         `json:"side,omitempty"`
	Qty           int64        `json:"qty"`
	AvgEntry      float64      `json:"avg_entry"`
	MarketPrice   float64      `json:"market_price"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
	Stop          StopSnapshot `json:"stop"`
}
