// Package pricing is the single place monetary values are rounded. Every
// price that leaves the engine goes through RoundToIncrement, so binary
// floating-point artifacts never reach order submission or the books.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidPrice reports a non-finite or negative price, or a bad increment.
var ErrInvalidPrice = errors.New("invalid price")

// DefaultIncrement is one cent, the minimum tick for most cash equities.
const DefaultIncrement = 0.01

// RoundToIncrement converts value to an exact decimal and rounds half-up to
// the nearest multiple of increment. Applying it twice equals applying once.
func RoundToIncrement(value, increment float64) (float64, error) {
	if err := checkFinite(value); err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative value %v", ErrInvalidPrice, value)
	}
	inc, err := incrementOf(increment)
	if err != nil {
		return 0, err
	}
	d := decimal.NewFromFloat(value)
	// DivRound rounds half away from zero, which for non-negative prices is
	// exactly round-half-up.
	rounded := d.DivRound(inc, 0).Mul(inc)
	return rounded.InexactFloat64(), nil
}

// ValidatePrecision reports whether price already sits exactly on the
// increment grid. Callers check prices before order submission.
func ValidatePrecision(price, increment float64) (bool, error) {
	if err := checkFinite(price); err != nil {
		return false, err
	}
	inc, err := incrementOf(increment)
	if err != nil {
		return false, err
	}
	d := decimal.NewFromFloat(price)
	return d.Mod(inc).IsZero(), nil
}

// StopLossPrice computes entry*(1-pct) rounded to the increment. Short
// positions pass a negative pct, which places the stop above entry.
func StopLossPrice(entry, pct, increment float64) (float64, error) {
	return scaled(entry, decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct)), increment)
}

// TakeProfitPrice computes entry*(1+pct) rounded to the increment. Short
// positions pass a negative pct.
func TakeProfitPrice(entry, pct, increment float64) (float64, error) {
	return scaled(entry, decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct)), increment)
}

// TrailingStopPrice computes extreme*(1-pct) rounded to the increment: the
// candidate stop trailing pct below the best price seen. Short positions
// pass a negative pct to trail above the lowest price.
func TrailingStopPrice(extreme, pct, increment float64) (float64, error) {
	return scaled(extreme, decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct)), increment)
}

// RealizedPnL returns qty*(exit-entry) computed in decimal, so closures of
// on-increment prices never accumulate float drift. Callers invert the sign
// for short lots.
func RealizedPnL(qty int64, entry, exit float64) (float64, error) {
	if err := checkFinite(entry); err != nil {
		return 0, err
	}
	if err := checkFinite(exit); err != nil {
		return 0, err
	}
	pnl := decimal.NewFromInt(qty).Mul(decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry)))
	return pnl.InexactFloat64(), nil
}

func scaled(base float64, factor decimal.Decimal, increment float64) (float64, error) {
	if err := checkFinite(base); err != nil {
		return 0, err
	}
	raw := decimal.NewFromFloat(base).Mul(factor)
	return RoundToIncrement(raw.InexactFloat64(), increment)
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite value %v", ErrInvalidPrice, v)
	}
	return nil
}

func incrementOf(increment float64) (decimal.Decimal, error) {
	if math.IsNaN(increment) || math.IsInf(increment, 0) || increment < 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: bad increment %v", ErrInvalidPrice, increment)
	}
	if increment == 0 {
		increment = DefaultIncrement
	}
	return decimal.NewFromFloat(increment), nil
}
