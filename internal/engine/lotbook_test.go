package engine

import (
	"errors"
	"testing"
	"time"

	"intraday-accounting/internal/types"
)

var testBase = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func fill(symbol string, side types.Side, qty int64, price float64, minute int, seq int64) types.Fill {
	return types.Fill{
		Instrument: symbol,
		Side:       side,
		Qty:        qty,
		Price:      price,
		Time:       testBase.Add(time.Duration(minute) * time.Minute),
		Seq:        seq,
		OrderID:    "test-order",
	}
}

func mustApply(t *testing.T, b *LotBook, f types.Fill) types.MatchResult {
	t.Helper()
	res, err := b.ApplyFill(f)
	if err != nil {
		t.Fatalf("ApplyFill(%+v): %v", f, err)
	}
	return res
}

func TestFIFOMatchingOrder(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 10, 10.00, 0, 1))
	mustApply(t, b, fill("ACME", types.Buy, 10, 12.00, 1, 2))

	res := mustApply(t, b, fill("ACME", types.Sell, 15, 13.00, 2, 3))

	if len(res.Realized) != 2 {
		t.Fatalf("expected 2 realized trades, got %d", len(res.Realized))
	}
	first, second := res.Realized[0], res.Realized[1]
	if first.Qty != 10 || first.EntryPrice != 10.00 {
		t.Errorf("first match must fully consume the oldest lot: got qty %d entry %v", first.Qty, first.EntryPrice)
	}
	if second.Qty != 5 || second.EntryPrice != 12.00 {
		t.Errorf("second match must partially consume the next lot: got qty %d entry %v", second.Qty, second.EntryPrice)
	}
	if first.PnL != 30.0 {
		t.Errorf("first PnL = %v, want 30", first.PnL)
	}
	if second.PnL != 5.0 {
		t.Errorf("second PnL = %v, want 5", second.PnL)
	}
	if got := b.OpenQty("ACME"); got != 5 {
		t.Errorf("open qty after partial exit = %d, want 5", got)
	}
}

func TestNoNegativeInventory(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 10, 10.00, 0, 1))
	mustApply(t, b, fill("ACME", types.Buy, 10, 11.00, 1, 2))

	// Exits across several fills must never realize more than was opened.
	var matched int64
	for _, f := range []types.Fill{
		fill("ACME", types.Sell, 7, 11.00, 2, 3),
		fill("ACME", types.Sell, 7, 11.00, 3, 4),
		fill("ACME", types.Sell, 7, 11.00, 4, 5),
	} {
		res := mustApply(t, b, f)
		for _, tr := range res.Realized {
			matched += tr.Qty
		}
	}
	if matched != 20 {
		t.Errorf("matched %d, cumulative entries were 20", matched)
	}
}

func TestReversalThroughFlat(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 20, 50.00, 0, 1))

	res := mustApply(t, b, fill("ACME", types.Sell, 25, 51.00, 1, 2))

	if len(res.Realized) != 1 || res.Realized[0].Qty != 20 {
		t.Fatalf("expected the 20 open shares realized, got %+v", res.Realized)
	}
	if !res.Reversed {
		t.Error("reversal must be reported, not silently dropped")
	}
	if res.Opened == nil || res.Opened.Side != types.Sell || res.Opened.Remaining != 5 {
		t.Fatalf("surplus must open a 5-share short lot, got %+v", res.Opened)
	}
	if b.Side("ACME") != types.Sell {
		t.Errorf("book side after reversal = %q, want SELL", b.Side("ACME"))
	}
}

func TestShortLotPnLSign(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Sell, 10, 100.00, 0, 1))

	res := mustApply(t, b, fill("ACME", types.Buy, 10, 95.00, 1, 2))

	if len(res.Realized) != 1 {
		t.Fatalf("expected 1 realized trade, got %d", len(res.Realized))
	}
	if got := res.Realized[0].PnL; got != 50.0 {
		t.Errorf("short cover below entry must profit: PnL = %v, want 50", got)
	}
	if b.OpenQty("ACME") != 0 {
		t.Errorf("book should be flat, open qty %d", b.OpenQty("ACME"))
	}
}

func TestCrossDayCarryover(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, types.Fill{
		Instrument: "ACME", Side: types.Buy, Qty: 10, Price: 10.00,
		Time: testBase.AddDate(0, 0, -1), Seq: 1, OrderID: "yesterday",
	})

	// Yesterday's lot must still match today; queues never reset.
	res := mustApply(t, b, fill("ACME", types.Sell, 10, 12.00, 0, 2))
	if len(res.Realized) != 1 {
		t.Fatalf("expected 1 realized trade, got %d", len(res.Realized))
	}
	tr := res.Realized[0]
	if tr.PnL != 20.0 {
		t.Errorf("PnL = %v, want 20", tr.PnL)
	}
	if !tr.EntryTime.Equal(testBase.AddDate(0, 0, -1)) {
		t.Errorf("entry time must come from yesterday's lot, got %v", tr.EntryTime)
	}
}

func TestOutOfOrderFillRejected(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 10, 10.00, 5, 2))

	_, err := b.ApplyFill(fill("ACME", types.Sell, 5, 11.00, 3, 3))
	if !errors.Is(err, ErrOutOfOrderFill) {
		t.Errorf("expected ErrOutOfOrderFill for older timestamp, got %v", err)
	}

	// Same timestamp with a stale sequence number is also a violation.
	_, err = b.ApplyFill(fill("ACME", types.Sell, 5, 11.00, 5, 1))
	if !errors.Is(err, ErrOutOfOrderFill) {
		t.Errorf("expected ErrOutOfOrderFill for stale seq, got %v", err)
	}

	// Same timestamp, higher seq is fine.
	mustApply(t, b, fill("ACME", types.Sell, 5, 11.00, 5, 3))
}

func TestOrderingIsPerInstrument(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 10, 10.00, 5, 10))
	// An earlier fill for a different instrument is unrelated.
	mustApply(t, b, fill("ZETA", types.Buy, 10, 20.00, 1, 2))
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	b := NewLotBook()
	for _, qty := range []int64{0, -5} {
		_, err := b.ApplyFill(fill("ACME", types.Buy, qty, 10.00, 0, 1))
		if !errors.Is(err, ErrNegativeQuantity) {
			t.Errorf("expected ErrNegativeQuantity for qty %d, got %v", qty, err)
		}
	}
}

func TestWeightedEntry(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 10, 10.00, 0, 1))
	mustApply(t, b, fill("ACME", types.Buy, 10, 12.00, 1, 2))

	entry, err := b.WeightedEntry("ACME", 0.01)
	if err != nil {
		t.Fatalf("WeightedEntry: %v", err)
	}
	if entry != 11.00 {
		t.Errorf("weighted entry = %v, want 11.00", entry)
	}

	// Thirds round half-up on the cent grid.
	b2 := NewLotBook()
	mustApply(t, b2, fill("ZETA", types.Buy, 1, 10.00, 0, 1))
	mustApply(t, b2, fill("ZETA", types.Buy, 2, 10.10, 1, 2))
	entry, err = b2.WeightedEntry("ZETA", 0.01)
	if err != nil {
		t.Fatalf("WeightedEntry: %v", err)
	}
	if entry != 10.07 { // (10.00 + 20.20) / 3 = 10.0666...
		t.Errorf("weighted entry = %v, want 10.07", entry)
	}

	if _, err := b.WeightedEntry("GONE", 0.01); !errors.Is(err, ErrNoPosition) {
		t.Errorf("expected ErrNoPosition, got %v", err)
	}
}

func TestDecimalExactPnL(t *testing.T) {
	b := NewLotBook()
	mustApply(t, b, fill("ACME", types.Buy, 3, 10.10, 0, 1))

	res := mustApply(t, b, fill("ACME", types.Sell, 3, 10.20, 1, 2))
	if got := res.Realized[0].PnL; got != 0.3 {
		t.Errorf("PnL = %v, want exactly 0.3", got)
	}
}
