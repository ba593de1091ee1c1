package engine

import (
	"time"

	"intraday-accounting/internal/types"
)

var ist = time.FixedZone("IST", 19800) // UTC+5:30

// midnightIST is the session boundary for "today's" report. Lot inventory
// itself never resets at this boundary.
func midnightIST() time.Time {
	znow := time.Now().UTC().In(ist)
	return time.Date(znow.Year(), znow.Month(), znow.Day(), 0, 0, 0, 0, ist)
}

func sumPnL(trades []types.RealizedTrade) float64 {
	var total float64
	for _, tr := range trades {
		total += tr.PnL
	}
	return total
}
