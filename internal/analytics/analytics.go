// Package analytics computes aggregate risk and performance statistics
// over a completed-trade series. Everything here is a pure function of its
// input: no state, no I/O, safe for concurrent readers.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"intraday-accounting/internal/types"
)

// ErrInsufficientData reports statistics requested on an empty series.
var ErrInsufficientData = errors.New("insufficient data")

// DefaultVaRConfidence is the conventional 95% level.
const DefaultVaRConfidence = 0.95

// Options tunes the computation. Zero values take defaults.
type Options struct {
	// VaRConfidence is the confidence level for Value-at-Risk and Expected
	// Shortfall, in (0, 1).
	VaRConfidence float64
}

// Report is the session statistics block consumed by reporting layers.
// Ratio fields are guarded: no division by zero ever surfaces as NaN.
// ProfitFactor is +Inf for an all-winning series.
type Report struct {
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	NetPnL      float64 `json:"net_pnl"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`

	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	StdDev       float64 `json:"std_dev"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"` // excess kurtosis

	MaxDrawdown       float64 `json:"max_drawdown"`
	VaR               float64 `json:"var"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	SortinoRatio      float64 `json:"sortino_ratio"`
	KellyFraction     float64 `json:"kelly_fraction"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLossStreak int `json:"longest_loss_streak"`
}

// MarshalJSON renders an infinite profit factor as the string "inf", since
// JSON has no representation for infinity.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: alias(r), ProfitFactor: r.ProfitFactor}
	if math.IsInf(r.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}

// Compute builds the report for an ordered series of realized trades.
// An empty series returns ErrInsufficientData.
func Compute(trades []types.RealizedTrade, opts Options) (*Report, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("%w: no realized trades", ErrInsufficientData)
	}
	confidence := opts.VaRConfidence
	if confidence == 0 {
		confidence = DefaultVaRConfidence
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("%w: confidence %v outside (0,1)", ErrInsufficientData, confidence)
	}

	pnls := make([]float64, len(trades))
	for i, tr := range trades {
		pnls[i] = tr.PnL
	}

	r := &Report{TradeCount: len(pnls)}
	for _, p := range pnls {
		r.NetPnL += p
		switch {
		case p > 0:
			r.Wins++
			r.GrossProfit += p
		case p < 0:
			r.Losses++
			r.GrossLoss += p
		}
	}
	r.WinRate = float64(r.Wins) / float64(r.TradeCount)
	if r.Wins > 0 {
		r.AvgWin = r.GrossProfit / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = r.GrossLoss / float64(r.Losses)
	}
	r.ProfitFactor = profitFactor(r.GrossProfit, r.GrossLoss)
	r.Expectancy = r.NetPnL / float64(r.TradeCount)

	r.StdDev, r.Skewness, r.Kurtosis = moments(pnls, r.Expectancy)
	r.MaxDrawdown = maxDrawdown(pnls)
	r.VaR, r.ExpectedShortfall = tailRisk(pnls, confidence)

	if r.StdDev > 0 {
		r.SharpeRatio = r.Expectancy / r.StdDev
	}
	if dd := downsideDeviation(pnls); dd > 0 {
		r.SortinoRatio = r.Expectancy / dd
	}
	r.KellyFraction = kelly(r.WinRate, r.AvgWin, r.AvgLoss)
	r.LongestWinStreak, r.LongestLossStreak = streaks(pnls)
	return r, nil
}

// profitFactor is gross profit over absolute gross loss: +Inf when there
// are no losses but some profit, 0 when there is neither.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / math.Abs(grossLoss)
}

// moments returns the population standard deviation, skewness and excess
// kurtosis. Degenerate series (constant P&L) report zero for all three.
func moments(pnls []float64, mean float64) (stdDev, skewness, kurtosis float64) {
	n := float64(len(pnls))
	var m2, m3, m4 float64
	for _, p := range pnls {
		d := p - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return 0, 0, 0
	}
	stdDev = math.Sqrt(m2)
	skewness = m3 / math.Pow(stdDev, 3)
	kurtosis = m4/(m2*m2) - 3
	return stdDev, skewness, kurtosis
}

// maxDrawdown is the decline from the highest peak of the cumulative P&L
// series to the lowest point after it.
func maxDrawdown(pnls []float64) float64 {
	cum := make([]float64, len(pnls))
	sum := 0.0
	for i, p := range pnls {
		sum += p
		cum[i] = sum
	}
	peakIdx := 0
	for i, c := range cum {
		if c > cum[peakIdx] {
			peakIdx = i
		}
	}
	trough := cum[peakIdx]
	for _, c := range cum[peakIdx:] {
		if c < trough {
			trough = c
		}
	}
	return cum[peakIdx] - trough
}

// tailRisk returns the VaR percentile of the per-trade P&L distribution and
// the mean of P&L at or below it (Expected Shortfall). Both values carry
// the sign of the underlying P&L: a loss is negative.
func tailRisk(pnls []float64, confidence float64) (varAt, es float64) {
	sorted := append([]float64(nil), pnls...)
	sort.Float64s(sorted)

	rank := int(math.Ceil((1 - confidence) * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	varAt = sorted[rank-1]

	var sum float64
	var n int
	for _, p := range sorted {
		if p <= varAt {
			sum += p
			n++
		}
	}
	es = sum / float64(n)
	return varAt, es
}

// downsideDeviation is the root mean square of negative P&L (target 0).
func downsideDeviation(pnls []float64) float64 {
	var sum float64
	for _, p := range pnls {
		if p < 0 {
			sum += p * p
		}
	}
	return math.Sqrt(sum / float64(len(pnls)))
}

// kelly is win_rate - (1-win_rate)/(avg_win/avg_loss), 0 when there is no
// loss history to size against.
func kelly(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 || avgWin == 0 {
		return 0
	}
	payoff := avgWin / math.Abs(avgLoss)
	return winRate - (1-winRate)/payoff
}

func streaks(pnls []float64) (win, loss int) {
	var curWin, curLoss int
	for _, p := range pnls {
		switch {
		case p > 0:
			curWin++
			curLoss = 0
		case p < 0:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		if curWin > win {
			win = curWin
		}
		if curLoss > loss {
			loss = curLoss
		}
	}
	return win, loss
}
