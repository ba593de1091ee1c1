package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-accounting/internal/types"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestFillsReplayOrder(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	// Insert out of chronological order; Fills must come back sorted.
	require.NoError(t, j.RecordFill(ctx, types.Fill{
		Instrument: "RELIANCE", Side: types.Sell, Qty: 5, Price: 28.50,
		Time: base.Add(2 * time.Minute), Seq: 3, OrderID: "o3",
	}))
	require.NoError(t, j.RecordFill(ctx, types.Fill{
		Instrument: "RELIANCE", Side: types.Buy, Qty: 10, Price: 28.10,
		Time: base, Seq: 1, OrderID: "o1",
	}))
	require.NoError(t, j.RecordFill(ctx, types.Fill{
		Instrument: "RELIANCE", Side: types.Buy, Qty: 5, Price: 28.20,
		Time: base, Seq: 2, OrderID: "o2",
	}))

	fills, err := j.Fills(ctx)
	require.NoError(t, err)
	require.Len(t, fills, 3)
	assert.Equal(t, "o1", fills[0].OrderID)
	assert.Equal(t, "o2", fills[1].OrderID)
	assert.Equal(t, "o3", fills[2].OrderID)
	assert.Equal(t, types.Buy, fills[0].Side)
	assert.Equal(t, base, fills[0].Time)
}

func TestTradesSinceFilter(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	yesterday := time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(ctx, types.RealizedTrade{
		Instrument: "TCS", Side: types.Buy, Qty: 10,
		EntryPrice: 100, ExitPrice: 105,
		EntryTime: yesterday.Add(-time.Hour), ExitTime: yesterday, PnL: 50,
	}))
	require.NoError(t, j.RecordTrade(ctx, types.RealizedTrade{
		Instrument: "TCS", Side: types.Buy, Qty: 5,
		EntryPrice: 100, ExitPrice: 99,
		EntryTime: yesterday, ExitTime: today, PnL: -5,
	}))

	all, err := j.Trades(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	recent, err := j.Trades(ctx, today.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, -5.0, recent[0].PnL)
	assert.Equal(t, today, recent[0].ExitTime)
}

func TestSessionID(t *testing.T) {
	j := newTestJournal(t)
	assert.Len(t, j.SessionID(), 26) // ULID string form
}
