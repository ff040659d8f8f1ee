package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openfx-labs/riskguard/pkg/id"
	"github.com/openfx-labs/riskguard/pkg/types"
)

// SQLiteJournal is the durable trade ledger and alert log. All writes
// are best-effort from the control plane's point of view; a journal
// failure never blocks trade processing.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal database at path and
// applies the schema.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// RecordTrade inserts a closed trade. Trades without an ID get a ULID.
func (j *SQLiteJournal) RecordTrade(t types.Trade) error {
	if t.ID == "" {
		t.ID = id.New()
	}

	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, strategy_id, pair, side, entry_time, exit_time, entry_price, exit_price, profit, outcome, risk_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StrategyID, t.Pair, string(t.Side), t.EntryTime, t.ExitTime,
		t.EntryPrice, t.ExitPrice, t.Profit, string(t.Outcome), t.RiskAmount,
	)
	return err
}

// RecordAlert inserts a monitor alert.
func (j *SQLiteJournal) RecordAlert(at time.Time, level, message string, balance float64) error {
	_, err := j.db.Exec(`
		INSERT INTO alerts (time, level, message, balance)
		VALUES (?, ?, ?, ?)`,
		at, level, message, balance,
	)
	return err
}

// ListTradesByStrategy returns the strategy's trades in exit-time order.
func (j *SQLiteJournal) ListTradesByStrategy(strategyID string) ([]types.Trade, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, strategy_id, pair, side, entry_time, exit_time, entry_price, exit_price, profit, outcome, risk_amount
		FROM trades WHERE strategy_id = ? ORDER BY exit_time`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		var t types.Trade
		var side, outcome string
		if err := rows.Scan(&t.ID, &t.StrategyID, &t.Pair, &side, &t.EntryTime, &t.ExitTime,
			&t.EntryPrice, &t.ExitPrice, &t.Profit, &outcome, &t.RiskAmount); err != nil {
			return nil, err
		}
		t.Side = types.Side(side)
		t.Outcome = types.TradeOutcome(outcome)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
