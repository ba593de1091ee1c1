package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestRoundToIncrementKillsFloatArtifacts(t *testing.T) {
	got, err := RoundToIncrement(28.348300000000002, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 28.35 {
		t.Errorf("expected exactly 28.35, got %v", got)
	}
}

func TestRoundToIncrementHalfUp(t *testing.T) {
	tests := []struct {
		value, increment, want float64
	}{
		{10.125, 0.01, 10.13}, // exact half rounds up
		{10.124, 0.01, 10.12},
		{100.0, 0.05, 100.0},
		{99.97, 0.05, 99.95},
		{99.98, 0.05, 100.0},
		{0, 0.01, 0},
		{7.4, 0, 7.4}, // zero increment falls back to one cent
	}
	for _, tt := range tests {
		got, err := RoundToIncrement(tt.value, tt.increment)
		if err != nil {
			t.Fatalf("RoundToIncrement(%v, %v): %v", tt.value, tt.increment, err)
		}
		if got != tt.want {
			t.Errorf("RoundToIncrement(%v, %v) = %v, want %v", tt.value, tt.increment, got, tt.want)
		}
	}
}

func TestRoundToIncrementIdempotent(t *testing.T) {
	values := []float64{28.348300000000002, 10.125, 0.015, 1234.5678, 0.005}
	for _, v := range values {
		once, err := RoundToIncrement(v, 0.01)
		if err != nil {
			t.Fatalf("first round of %v: %v", v, err)
		}
		twice, err := RoundToIncrement(once, 0.01)
		if err != nil {
			t.Fatalf("second round of %v: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent for %v: %v != %v", v, once, twice)
		}
	}
}

func TestRoundToIncrementRejectsBadInput(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1.50} {
		if _, err := RoundToIncrement(v, 0.01); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("expected ErrInvalidPrice for %v, got %v", v, err)
		}
	}
	if _, err := RoundToIncrement(10, -0.01); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice for negative increment, got %v", err)
	}
}

func TestValidatePrecision(t *testing.T) {
	ok, err := ValidatePrecision(28.35, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("28.35 should be on a one-cent grid")
	}

	ok, err = ValidatePrecision(28.355, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("28.355 should be off a one-cent grid")
	}

	if _, err := ValidatePrecision(math.NaN(), 0.01); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestDerivedPricesAlwaysRounded(t *testing.T) {
	stop, err := StopLossPrice(100.0, 0.0333, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop != 96.67 {
		t.Errorf("StopLossPrice = %v, want 96.67", stop)
	}

	tp, err := TakeProfitPrice(100.0, 0.0333, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp != 103.33 {
		t.Errorf("TakeProfitPrice = %v, want 103.33", tp)
	}

	trail, err := TrailingStopPrice(102.0, 0.01, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trail != 100.98 {
		t.Errorf("TrailingStopPrice = %v, want 100.98", trail)
	}

	// Short side: negative pct trails above the extreme.
	shortTrail, err := TrailingStopPrice(98.0, -0.01, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shortTrail != 98.98 {
		t.Errorf("short TrailingStopPrice = %v, want 98.98", shortTrail)
	}
}

func TestRealizedPnLExact(t *testing.T) {
	pnl, err := RealizedPnL(3, 10.10, 10.20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Plain float math gives 0.30000000000000115 here.
	if pnl != 0.3 {
		t.Errorf("RealizedPnL = %v, want exactly 0.3", pnl)
	}

	loss, err := RealizedPnL(10, 28.35, 28.10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loss != -2.5 {
		t.Errorf("RealizedPnL = %v, want exactly -2.5", loss)
	}
}
