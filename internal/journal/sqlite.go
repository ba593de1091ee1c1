// Package journal persists fills and realized trades to SQLite. The fill
// stream is the minimum record needed to rebuild lot inventory exactly
// after a restart: replaying it through the lot book reproduces state.
package journal

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"intraday-accounting/internal/types"
)

type SQLiteJournal struct {
	db        *sql.DB
	sessionID string
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, sessionID: ulid.Make().String()}, nil
}

// SessionID identifies this process run in the journal rows.
func (j *SQLiteJournal) SessionID() string {
	return j.sessionID
}

func (j *SQLiteJournal) RecordFill(ctx context.Context, f types.Fill) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO fills
		(session_id, instrument, side, qty, price, ts, seq, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.sessionID, f.Instrument, string(f.Side), f.Qty, f.Price,
		f.Time.UnixNano(), f.Seq, f.OrderID,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(ctx context.Context, t types.RealizedTrade) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(session_id, instrument, side, qty, entry_price, exit_price, entry_ts, exit_ts, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.sessionID, t.Instrument, string(t.Side), t.Qty, t.EntryPrice,
		t.ExitPrice, t.EntryTime.UnixNano(), t.ExitTime.UnixNano(), t.PnL,
	)
	return err
}

// Fills returns every recorded fill in (ts, seq) order per instrument,
// ready to replay through the lot book.
func (j *SQLiteJournal) Fills(ctx context.Context) ([]types.Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT instrument, side, qty, price, ts, seq, order_id
		FROM fills ORDER BY instrument, ts, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []types.Fill
	for rows.Next() {
		var f types.Fill
		var side string
		var ts int64
		if err := rows.Scan(&f.Instrument, &side, &f.Qty, &f.Price, &ts, &f.Seq, &f.OrderID); err != nil {
			return nil, err
		}
		f.Side = types.Side(side)
		f.Time = time.Unix(0, ts).UTC()
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// Trades returns realized trades with an exit at or after since, in exit
// order.
func (j *SQLiteJournal) Trades(ctx context.Context, since time.Time) ([]types.RealizedTrade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT instrument, side, qty, entry_price, exit_price, entry_ts, exit_ts, pnl
		FROM trades WHERE exit_ts >= ? ORDER BY exit_ts`, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []types.RealizedTrade
	for rows.Next() {
		var t types.RealizedTrade
		var side string
		var entryTS, exitTS int64
		if err := rows.Scan(&t.Instrument, &side, &t.Qty, &t.EntryPrice, &t.ExitPrice, &entryTS, &exitTS, &t.PnL); err != nil {
			return nil, err
		}
		t.Side = types.Side(side)
		t.EntryTime = time.Unix(0, entryTS).UTC()
		t.ExitTime = time.Unix(0, exitTS).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
