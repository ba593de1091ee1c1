package engine

import "errors"

var (
	// ErrNegativeQuantity reports an inventory underflow or a non-positive
	// fill quantity. Accounting is no longer trustworthy for the instrument
	// and the driving loop should halt trading on it.
	ErrNegativeQuantity = errors.New("negative quantity")

	// ErrOutOfOrderFill reports a fill delivered out of (time, seq) order.
	ErrOutOfOrderFill = errors.New("out of order fill")

	// ErrOutOfOrderTick reports a price tick older than the last one seen.
	ErrOutOfOrderTick = errors.New("out of order tick")

	// ErrNoPosition reports an operation on a symbol with no open position.
	ErrNoPosition = errors.New("no open position")
)
