package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	pair TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	profit REAL NOT NULL,
	outcome TEXT NOT NULL,
	risk_amount REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);

CREATE TABLE IF NOT EXISTS alerts (
	time DATETIME NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	balance REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(time);
`
