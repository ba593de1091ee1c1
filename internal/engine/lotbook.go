package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"intraday-accounting/internal/pricing"
	"intraday-accounting/internal/types"
)

// LotBook matches fills against open lots FIFO, one queue per instrument.
// Lots carry across sessions: a position opened yesterday is matched by
// today's exit, so realized P&L is correct at session boundaries. The book
// never resets its queues.
type LotBook struct {
	queues   map[string][]*types.Lot
	lastTime map[string]time.Time
	lastSeq  map[string]int64
}

func NewLotBook() *LotBook {
	return &LotBook{
		queues:   make(map[string][]*types.Lot),
		lastTime: make(map[string]time.Time),
		lastSeq:  make(map[string]int64),
	}
}

// ApplyFill consumes one fill. Entry fills append a lot. Exit fills pop
// lots from the front of the queue, emitting one RealizedTrade per lot
// matched. An exit larger than the open quantity closes everything and
// opens a lot on the opposite side: the position has reversed through
// flat, and the surplus is reported, never dropped.
//
// Fills must arrive in non-decreasing (time, seq) order per instrument.
func (b *LotBook) ApplyFill(fill types.Fill) (types.MatchResult, error) {
	var res types.MatchResult

	if fill.Qty <= 0 {
		return res, fmt.Errorf("%w: fill %s qty %d", ErrNegativeQuantity, fill.OrderID, fill.Qty)
	}
	if err := b.checkOrder(fill); err != nil {
		return res, err
	}

	q := b.queues[fill.Instrument]
	remaining := fill.Qty

	// A fill on the same side as the book (or into an empty book) is an
	// entry. Anything else is an exit against the front of the queue.
	if len(q) == 0 || q[0].Side == fill.Side {
		lot := &types.Lot{
			Instrument: fill.Instrument,
			Side:       fill.Side,
			Remaining:  remaining,
			EntryPrice: fill.Price,
			OpenTime:   fill.Time,
		}
		b.queues[fill.Instrument] = append(q, lot)
		b.mark(fill)
		res.Opened = lot
		return res, nil
	}

	for remaining > 0 && len(q) > 0 {
		lot := q[0]
		matched := remaining
		if lot.Remaining < matched {
			matched = lot.Remaining
		}
		if matched <= 0 {
			return res, fmt.Errorf("%w: lot for %s has remaining %d", ErrNegativeQuantity, fill.Instrument, lot.Remaining)
		}

		pnl, err := lotPnL(lot.Side, matched, lot.EntryPrice, fill.Price)
		if err != nil {
			return res, err
		}
		res.Realized = append(res.Realized, types.RealizedTrade{
			Instrument: fill.Instrument,
			Side:       lot.Side,
			Qty:        matched,
			EntryPrice: lot.EntryPrice,
			ExitPrice:  fill.Price,
			EntryTime:  lot.OpenTime,
			ExitTime:   fill.Time,
			PnL:        pnl,
		})

		lot.Remaining -= matched
		remaining -= matched
		if lot.Remaining == 0 {
			q = q[1:]
		}
	}
	b.queues[fill.Instrument] = q

	if remaining > 0 {
		// Reversal: the surplus opens a position on the fill's side.
		lot := &types.Lot{
			Instrument: fill.Instrument,
			Side:       fill.Side,
			Remaining:  remaining,
			EntryPrice: fill.Price,
			OpenTime:   fill.Time,
		}
		b.queues[fill.Instrument] = append(b.queues[fill.Instrument], lot)
		res.Opened = lot
		res.Reversed = true
	}

	b.mark(fill)
	return res, nil
}

// OpenQty returns the net open quantity for the instrument (always >= 0;
// Side tells the direction).
func (b *LotBook) OpenQty(instrument string) int64 {
	var total int64
	for _, lot := range b.queues[instrument] {
		total += lot.Remaining
	}
	return total
}

// Side returns the direction of the open position, or "" when flat.
func (b *LotBook) Side(instrument string) types.Side {
	q := b.queues[instrument]
	if len(q) == 0 {
		return ""
	}
	return q[0].Side
}

// WeightedEntry returns the volume-weighted entry price of the open lots,
// rounded to the increment. ErrNoPosition when flat.
func (b *LotBook) WeightedEntry(instrument string, increment float64) (float64, error) {
	q := b.queues[instrument]
	if len(q) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPosition, instrument)
	}
	cost := decimal.Zero
	var qty int64
	for _, lot := range q {
		cost = cost.Add(decimal.NewFromFloat(lot.EntryPrice).Mul(decimal.NewFromInt(lot.Remaining)))
		qty += lot.Remaining
	}
	raw := cost.Div(decimal.NewFromInt(qty))
	return pricing.RoundToIncrement(raw.InexactFloat64(), increment)
}

// Lots returns a copy of the open lots for inspection.
func (b *LotBook) Lots(instrument string) []types.Lot {
	q := b.queues[instrument]
	out := make([]types.Lot, len(q))
	for i, lot := range q {
		out[i] = *lot
	}
	return out
}

func (b *LotBook) checkOrder(fill types.Fill) error {
	last, seen := b.lastTime[fill.Instrument]
	if !seen {
		return nil
	}
	if fill.Time.Before(last) {
		return fmt.Errorf("%w: %s fill %s at %s, last seen %s",
			ErrOutOfOrderFill, fill.Instrument, fill.OrderID, fill.Time.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	if fill.Time.Equal(last) && fill.Seq <= b.lastSeq[fill.Instrument] {
		return fmt.Errorf("%w: %s fill %s seq %d, last seq %d",
			ErrOutOfOrderFill, fill.Instrument, fill.OrderID, fill.Seq, b.lastSeq[fill.Instrument])
	}
	return nil
}

func (b *LotBook) mark(fill types.Fill) {
	b.lastTime[fill.Instrument] = fill.Time
	b.lastSeq[fill.Instrument] = fill.Seq
}

// lotPnL books qty*(exit-entry) for long lots and the inverse for short
// lots, in exact decimal arithmetic.
func lotPnL(side types.Side, qty int64, entry, exit float64) (float64, error) {
	if side == types.Sell {
		return pricing.RealizedPnL(qty, exit, entry)
	}
	return pricing.RealizedPnL(qty, entry, exit)
}
