package engine

import (
	"context"
	"sync"
	"time"

	"intraday-accounting/internal/analytics"
	"intraday-accounting/internal/journal"
	"intraday-accounting/internal/logger"
	"intraday-accounting/internal/pricing"
	"intraday-accounting/internal/store"
	"intraday-accounting/internal/tradelog"
	"intraday-accounting/internal/types"
)

// Engine composes the lot book, the stop tracker and the analyzer into the
// accounting operations the surrounding bot needs. One instance per
// process; per-instrument state never spans instruments, so a single mutex
// covers callers that poll snapshots while the driving loop runs.
type Engine struct {
	mu        sync.Mutex
	cfg       *store.Config
	book      *LotBook
	stops     *StopTracker
	realized  []types.RealizedTrade
	lastPrice map[string]float64
	jrnl      *journal.SQLiteJournal // nil when journaling is disabled
}

func newEngine(cfg *store.Config, jrnl *journal.SQLiteJournal) *Engine {
	return &Engine{
		cfg:       cfg,
		book:      NewLotBook(),
		stops:     NewStopTracker(),
		lastPrice: make(map[string]float64),
		jrnl:      jrnl,
	}
}

// RecordFill books one brokerage execution: FIFO-matches it against open
// lots, reconciles the trailing-stop tracker with the resulting inventory,
// and persists the fact. Errors mean the fill was not booked.
func (e *Engine) RecordFill(ctx context.Context, fill types.Fill) (*types.MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyFill(ctx, fill, true)
}

func (e *Engine) applyFill(ctx context.Context, fill types.Fill, persist bool) (*types.MatchResult, error) {
	tick := e.cfg.TickFor(fill.Instrument)
	price, err := pricing.RoundToIncrement(fill.Price, tick)
	if err != nil {
		logger.ErrorWithErr(ctx, "Rejecting fill with bad price", err, "instrument", fill.Instrument, "order_id", fill.OrderID)
		return nil, err
	}
	fill.Price = price

	res, err := e.book.ApplyFill(fill)
	if err != nil {
		logger.ErrorWithErr(ctx, "Fill not booked", err, "instrument", fill.Instrument, "order_id", fill.OrderID)
		return nil, err
	}

	e.realized = append(e.realized, res.Realized...)
	if err := e.reconcileStops(ctx, fill.Instrument, &res); err != nil {
		return nil, err
	}

	if persist {
		e.persistFill(ctx, fill, &res)
	}

	logger.Trade(ctx, fill.Instrument, string(fill.Side), int(fill.Qty), fill.Price, fill.OrderID,
		"realized_trades", len(res.Realized),
		"realized_pnl", sumPnL(res.Realized),
		"reversed", res.Reversed,
	)
	return &res, nil
}

// reconcileStops keeps the tracker in step with lot inventory: open on the
// first lot, rebase on add-ons, reopen on reversal, retire when flat.
func (e *Engine) reconcileStops(ctx context.Context, symbol string, res *types.MatchResult) error {
	if e.book.OpenQty(symbol) == 0 {
		if _, ok := e.stops.Snapshot(symbol); ok {
			if err := e.stops.Close(symbol, "FLAT"); err != nil {
				return err
			}
			logger.Info(ctx, "Position closed", "symbol", symbol)
		}
		return nil
	}

	params := e.cfg.ParamsFor(symbol)
	entry, err := e.book.WeightedEntry(symbol, params.MinTick)
	if err != nil {
		return err
	}
	side := e.book.Side(symbol)

	if res.Reversed {
		if _, ok := e.stops.Snapshot(symbol); ok {
			if err := e.stops.Close(symbol, "REVERSED"); err != nil {
				return err
			}
		}
	}
	_, tracked := e.stops.Snapshot(symbol)
	if res.Opened != nil || !tracked {
		if err := e.stops.Open(symbol, entry, side, params); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) persistFill(ctx context.Context, fill types.Fill, res *types.MatchResult) {
	if err := tradelog.Append(tradelog.Entry{
		Instrument:  fill.Instrument,
		Side:        string(fill.Side),
		Qty:         fill.Qty,
		Price:       fill.Price,
		OrderID:     fill.OrderID,
		RealizedPnL: sumPnL(res.Realized),
		Reversed:    res.Reversed,
	}); err != nil {
		logger.Warn(ctx, "Failed to append tradelog entry", "error", err)
	}
	if e.jrnl == nil {
		return
	}
	if err := e.jrnl.RecordFill(ctx, fill); err != nil {
		logger.Warn(ctx, "Failed to journal fill", "error", err, "order_id", fill.OrderID)
	}
	for _, tr := range res.Realized {
		if err := e.jrnl.RecordTrade(ctx, tr); err != nil {
			logger.Warn(ctx, "Failed to journal trade", "error", err, "instrument", tr.Instrument)
		}
	}
}

// UpdatePrice feeds one market tick to the symbol's stop machine and
// reports any stop movement or trigger. The engine never submits the exit
// itself; the order layer consumes the events.
func (e *Engine) UpdatePrice(ctx context.Context, symbol string, price float64, ts time.Time) (*types.StopUpdate, *types.StopTriggered, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	update, triggered, err := e.stops.OnPrice(symbol, price, ts)
	if err != nil {
		return nil, nil, err
	}
	if rounded, rerr := pricing.RoundToIncrement(price, e.cfg.TickFor(symbol)); rerr == nil {
		e.lastPrice[symbol] = rounded
	}

	if update != nil {
		logger.Debug(ctx, "Trailing stop updated",
			"symbol", symbol,
			"old_stop", update.OldStop,
			"new_stop", update.NewStop,
			"current_price", price,
		)
		if err := tradelog.AppendStopEvent(tradelog.StopEntry{
			Instrument: symbol, Event: "STOP_UPDATED",
			Price: price, OldStop: update.OldStop, NewStop: update.NewStop,
		}); err != nil {
			logger.Warn(ctx, "Failed to append stop event", "error", err)
		}
	}
	if triggered != nil {
		logger.Warn(ctx, "Stop loss triggered",
			"symbol", symbol,
			"event", "STOP_LOSS_TRIGGERED",
			"current_price", triggered.Price,
			"stop_price", triggered.StopPrice,
		)
		if err := tradelog.AppendStopEvent(tradelog.StopEntry{
			Instrument: symbol, Event: "STOP_TRIGGERED",
			Price: triggered.Price, StopPrice: triggered.StopPrice,
		}); err != nil {
			logger.Warn(ctx, "Failed to append stop event", "error", err)
		}
	}
	return update, triggered, nil
}

// Snapshot returns the aggregate view of one instrument. Flat instruments
// return a zero-quantity snapshot, not an error.
func (e *Engine) Snapshot(ctx context.Context, symbol string) (*types.PositionSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &types.PositionSnapshot{
		Instrument:  symbol,
		MarketPrice: e.lastPrice[symbol],
	}
	snap.Stop, _ = e.stops.Snapshot(symbol)

	qty := e.book.OpenQty(symbol)
	if qty == 0 {
		return snap, nil
	}
	params := e.cfg.ParamsFor(symbol)
	entry, err := e.book.WeightedEntry(symbol, params.MinTick)
	if err != nil {
		return nil, err
	}
	snap.Qty = qty
	snap.Side = e.book.Side(symbol)
	snap.AvgEntry = entry
	if snap.MarketPrice > 0 {
		pnl, err := lotPnL(snap.Side, qty, entry, snap.MarketPrice)
		if err != nil {
			return nil, err
		}
		snap.UnrealizedPnL = pnl
	}
	return snap, nil
}

// SessionReport runs the analyzer over realized trades whose exit is at or
// after since. A zero since means the current IST session.
func (e *Engine) SessionReport(ctx context.Context, since time.Time) (*analytics.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if since.IsZero() {
		since = midnightIST()
	}
	var trades []types.RealizedTrade
	for _, tr := range e.realized {
		if !tr.ExitTime.Before(since) {
			trades = append(trades, tr)
		}
	}
	return analytics.Compute(trades, analytics.Options{VaRConfidence: e.cfg.Risk.VaRConfidence})
}

// Rebuild discards in-memory state and replays the journaled fill stream
// through a fresh lot book, reproducing inventory and stop state exactly.
// Lots opened in prior sessions come back, so today's exits still match
// against them.
func (e *Engine) Rebuild(ctx context.Context) error {
	if e.jrnl == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fills, err := e.jrnl.Fills(ctx)
	if err != nil {
		return err
	}
	e.book = NewLotBook()
	e.stops = NewStopTracker()
	e.realized = nil
	for _, fill := range fills {
		if _, err := e.applyFill(ctx, fill, false); err != nil {
			return err
		}
	}
	logger.Info(ctx, "State rebuilt from journal", "fills", len(fills), "realized_trades", len(e.realized))
	return nil
}

// Close releases the journal. The engine itself holds no other resources.
func (e *Engine) Close() error {
	if e.jrnl != nil {
		return e.jrnl.Close()
	}
	return nil
}
