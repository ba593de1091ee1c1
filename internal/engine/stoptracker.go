package engine

import (
	"fmt"
	"time"

	"intraday-accounting/internal/pricing"
	"intraday-accounting/internal/types"
)

// stopPosition is the per-symbol trailing-stop state machine.
type stopPosition struct {
	side     types.Side
	entry    float64
	extreme  float64 // highest price seen for longs, lowest for shorts
	stop     float64 // 0 means no protective stop yet
	state    types.StopState
	params   types.StopParams
	lastTick time.Time
}

// StopTracker owns one trailing-stop state machine per open position. It
// consumes price ticks and reports stop movements and triggers. It never
// submits orders; execution belongs to the external order layer.
type StopTracker struct {
	positions map[string]*stopPosition
}

func NewStopTracker() *StopTracker {
	return &StopTracker{positions: make(map[string]*stopPosition)}
}

// Open starts tracking a position. Reopening an existing same-side position
// is an add-on: the entry is rebased to the new weighted entry and the
// initial stop only moves if the recomputed one improves on the current.
func (t *StopTracker) Open(symbol string, entry float64, side types.Side, params types.StopParams) error {
	initial := 0.0
	if params.StopLossPct > 0 {
		var err error
		initial, err = pricing.StopLossPrice(entry, signed(params.StopLossPct, side), params.MinTick)
		if err != nil {
			return err
		}
	}

	if p := t.positions[symbol]; p != nil && p.side == side && p.state != types.StopTripped {
		p.entry = entry
		if improves(p.side, initial, p.stop) {
			p.stop = initial
		}
		return nil
	}

	t.positions[symbol] = &stopPosition{
		side:    side,
		entry:   entry,
		extreme: entry,
		stop:    initial,
		state:   types.StopInactive,
		params:  params,
	}
	return nil
}

// OnPrice feeds one tick to the symbol's state machine. It returns a
// StopUpdate when the stop price moved and a StopTriggered the first time
// price crosses the stop against the position. Ticks must be monotonic in
// time per symbol. Symbols with no tracked position are ignored.
func (t *StopTracker) OnPrice(symbol string, price float64, ts time.Time) (*types.StopUpdate, *types.StopTriggered, error) {
	p := t.positions[symbol]
	if p == nil || p.state == types.StopTripped || p.state == types.StopClosed {
		return nil, nil, nil
	}
	if !p.lastTick.IsZero() && ts.Before(p.lastTick) {
		return nil, nil, fmt.Errorf("%w: %s tick at %s, last seen %s",
			ErrOutOfOrderTick, symbol, ts.Format(time.RFC3339Nano), p.lastTick.Format(time.RFC3339Nano))
	}
	price, err := pricing.RoundToIncrement(price, p.params.MinTick)
	if err != nil {
		return nil, nil, err
	}
	p.lastTick = ts

	if favorable(p.side, price, p.extreme) {
		p.extreme = price
	}

	if p.state == types.StopInactive && p.params.ActivationPct > 0 {
		threshold, err := pricing.TakeProfitPrice(p.entry, signed(p.params.ActivationPct, p.side), p.params.MinTick)
		if err != nil {
			return nil, nil, err
		}
		if reached(p.side, price, threshold) {
			p.state = types.StopActive
		}
	}

	var update *types.StopUpdate
	if p.state == types.StopActive && p.params.TrailingPct > 0 {
		candidate, err := pricing.TrailingStopPrice(p.extreme, signed(p.params.TrailingPct, p.side), p.params.MinTick)
		if err != nil {
			return nil, nil, err
		}
		if improves(p.side, candidate, p.stop) && clearsMinMove(p.side, candidate, p.stop, p.params.MinMovePct) {
			update = &types.StopUpdate{
				Instrument: symbol,
				OldStop:    p.stop,
				NewStop:    candidate,
				Price:      price,
				Time:       ts,
			}
			p.stop = candidate
		}
	}

	if p.stop > 0 && crossed(p.side, price, p.stop) {
		p.state = types.StopTripped
		return update, &types.StopTriggered{
			Instrument: symbol,
			Price:      price,
			StopPrice:  p.stop,
			Time:       ts,
		}, nil
	}
	return update, nil, nil
}

// IsTriggered reports whether the given price crosses the current stop.
// It does not mutate state; OnPrice owns the Triggered transition.
func (t *StopTracker) IsTriggered(symbol string, price float64) bool {
	p := t.positions[symbol]
	if p == nil || p.stop <= 0 {
		return false
	}
	return crossed(p.side, price, p.stop)
}

// Close retires the symbol's state machine. The position went flat through
// the lot book, or the caller abandoned it.
func (t *StopTracker) Close(symbol, reason string) error {
	p := t.positions[symbol]
	if p == nil {
		return fmt.Errorf("%w: %s (%s)", ErrNoPosition, symbol, reason)
	}
	p.state = types.StopClosed
	delete(t.positions, symbol)
	return nil
}

// Snapshot returns the stop machine state for the symbol.
func (t *StopTracker) Snapshot(symbol string) (types.StopSnapshot, bool) {
	p := t.positions[symbol]
	if p == nil {
		return types.StopSnapshot{State: types.StopClosed}, false
	}
	return types.StopSnapshot{
		State:        p.state,
		EntryPrice:   p.entry,
		ExtremePrice: p.extreme,
		StopPrice:    p.stop,
		Params:       p.params,
	}, true
}

// signed flips a threshold percentage for short positions, so the pricing
// helpers place stops above entry and trail above the lowest price.
func signed(pct float64, side types.Side) float64 {
	if side == types.Sell {
		return -pct
	}
	return pct
}

func favorable(side types.Side, price, extreme float64) bool {
	if side == types.Sell {
		return price < extreme
	}
	return price > extreme
}

func reached(side types.Side, price, threshold float64) bool {
	if side == types.Sell {
		return price <= threshold
	}
	return price >= threshold
}

// improves reports whether candidate moves the stop in the position's
// favor. A zero current stop accepts any candidate.
func improves(side types.Side, candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	if side == types.Sell {
		return candidate < current
	}
	return candidate > current
}

// clearsMinMove applies the hysteresis threshold: sub-threshold stop
// improvements are dropped so noise does not churn resting stop orders.
func clearsMinMove(side types.Side, candidate, current, minMovePct float64) bool {
	if current <= 0 || minMovePct <= 0 {
		return true
	}
	rel := (candidate - current) / current
	if side == types.Sell {
		rel = (current - candidate) / current
	}
	return rel >= minMovePct
}

func crossed(side types.Side, price, stop float64) bool {
	if side == types.Sell {
		return price >= stop
	}
	return price <= stop
}
