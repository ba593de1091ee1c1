package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"intraday-accounting/internal/types"
)

func series(pnls ...float64) []types.RealizedTrade {
	trades := make([]types.RealizedTrade, len(pnls))
	for i, p := range pnls {
		trades[i] = types.RealizedTrade{Instrument: "ACME", PnL: p}
	}
	return trades
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestMixedSeries(t *testing.T) {
	rep, err := Compute(series(10, -5, 8, -3, 2), Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if rep.TradeCount != 5 || rep.Wins != 3 || rep.Losses != 2 {
		t.Errorf("counts = %d/%d/%d", rep.TradeCount, rep.Wins, rep.Losses)
	}
	approx(t, "win_rate", rep.WinRate, 0.6)
	approx(t, "gross_profit", rep.GrossProfit, 20)
	approx(t, "gross_loss", rep.GrossLoss, -8)
	approx(t, "net_pnl", rep.NetPnL, 12)
	approx(t, "profit_factor", rep.ProfitFactor, 2.5)
	approx(t, "expectancy", rep.Expectancy, 2.4)

	// Cumulative P&L runs 10, 5, 13, 10, 12: the peak is 13 and the lowest
	// point after it is 10.
	approx(t, "max_drawdown", rep.MaxDrawdown, 3)

	// At 95% over five trades the VaR rank is the single worst trade.
	approx(t, "var", rep.VaR, -5)
	approx(t, "expected_shortfall", rep.ExpectedShortfall, -5)

	approx(t, "std_dev", rep.StdDev, math.Sqrt(34.64))
	approx(t, "sharpe", rep.SharpeRatio, 2.4/math.Sqrt(34.64))
	approx(t, "sortino", rep.SortinoRatio, 2.4/math.Sqrt(6.8))
	approx(t, "kelly", rep.KellyFraction, 0.36)

	if rep.LongestWinStreak != 1 || rep.LongestLossStreak != 1 {
		t.Errorf("streaks = %d/%d", rep.LongestWinStreak, rep.LongestLossStreak)
	}
}

func TestAllWinnersHasInfiniteProfitFactor(t *testing.T) {
	rep, err := Compute(series(5, 3, 7), Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !math.IsInf(rep.ProfitFactor, 1) {
		t.Errorf("profit_factor = %v, want +Inf", rep.ProfitFactor)
	}
	if rep.SharpeRatio <= 0 {
		t.Errorf("sharpe = %v, want positive", rep.SharpeRatio)
	}
	approx(t, "max_drawdown", rep.MaxDrawdown, 0)
	approx(t, "kelly", rep.KellyFraction, 0)
	if rep.LongestWinStreak != 3 || rep.LongestLossStreak != 0 {
		t.Errorf("streaks = %d/%d", rep.LongestWinStreak, rep.LongestLossStreak)
	}

	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"profit_factor":"inf"`) {
		t.Errorf("marshaled report = %s", b)
	}
}

func TestEmptySeriesRejected(t *testing.T) {
	if _, err := Compute(nil, Options{}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestConstantSeriesHasNoRatios(t *testing.T) {
	rep, err := Compute(series(2, 2, 2, 2), Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	approx(t, "std_dev", rep.StdDev, 0)
	approx(t, "sharpe", rep.SharpeRatio, 0)
	approx(t, "sortino", rep.SortinoRatio, 0)
	approx(t, "skewness", rep.Skewness, 0)
	approx(t, "kurtosis", rep.Kurtosis, 0)
}

func TestZeroPnLResetsStreaks(t *testing.T) {
	rep, err := Compute(series(1, 1, 0, 1, -2, -2, 0, -2), Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if rep.LongestWinStreak != 2 {
		t.Errorf("win streak = %d, want 2", rep.LongestWinStreak)
	}
	if rep.LongestLossStreak != 2 {
		t.Errorf("loss streak = %d, want 2", rep.LongestLossStreak)
	}
}

func TestBadConfidenceRejected(t *testing.T) {
	for _, conf := range []float64{-0.5, 1, 1.5} {
		if _, err := Compute(series(1, -1), Options{VaRConfidence: conf}); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("confidence %v: expected ErrInsufficientData, got %v", conf, err)
		}
	}
}

func TestTailRiskDeepensWithLowerConfidence(t *testing.T) {
	trades := series(-10, -4, -1, 2, 3, 5, 6, 7, 8, 9)
	rep95, err := Compute(trades, Options{VaRConfidence: 0.95})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	rep70, err := Compute(trades, Options{VaRConfidence: 0.70})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	approx(t, "var@95", rep95.VaR, -10)
	approx(t, "var@70", rep70.VaR, -1)
	approx(t, "es@70", rep70.ExpectedShortfall, -5)
	if rep70.VaR < rep95.VaR {
		t.Errorf("a looser confidence must not report a deeper tail: %v vs %v", rep70.VaR, rep95.VaR)
	}
}
