package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	session_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price REAL NOT NULL,
	ts INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	PRIMARY KEY (instrument, ts, seq)
);

CREATE TABLE IF NOT EXISTS trades (
	session_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_ts INTEGER NOT NULL,
	exit_ts INTEGER NOT NULL,
	pnl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(instrument, ts, seq);
CREATE INDEX IF NOT EXISTS idx_trades_exit ON trades(exit_ts);
`
