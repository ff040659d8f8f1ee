package types

import (
	"fmt"
	"time"
)

// TradeOutcome classifies a closed trade.
type TradeOutcome string

const (
	OutcomeWin  TradeOutcome = "WIN"
	OutcomeLoss TradeOutcome = "LOSS"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// StrategyType tags how a strategy trades, which decides the market
// regime it is allowed to trade in.
type StrategyType string

const (
	StrategyBreakout      StrategyType = "breakout"
	StrategyTrend         StrategyType = "trend"
	StrategyMeanReversion StrategyType = "mean_reversion"
)

// Trade is an immutable record of a closed trade, created at the
// ingestion boundary and appended to the portfolio ledger.
type Trade struct {
	ID         string       `json:"id,omitempty"`
	StrategyID string       `json:"strategy_id"`
	Pair       string       `json:"pair"`
	Side       Side         `json:"side"`
	EntryTime  time.Time    `json:"entry_time"`
	ExitTime   time.Time    `json:"exit_time"`
	EntryPrice float64      `json:"entry_price"`
	ExitPrice  float64      `json:"exit_price"`
	Profit     float64      `json:"profit"`
	Outcome    TradeOutcome `json:"outcome"`
	RiskAmount float64      `json:"risk_amount"`
}

// Validate checks a trade record delivered by the execution collaborator.
func (t *Trade) Validate() error {
	if t.StrategyID == "" {
		return fmt.Errorf("trade missing strategy id")
	}
	if t.Pair == "" {
		return fmt.Errorf("trade missing pair")
	}
	if t.ExitTime.IsZero() {
		return fmt.Errorf("trade missing exit time")
	}
	switch t.Outcome {
	case OutcomeWin, OutcomeLoss:
	default:
		return fmt.Errorf("invalid trade outcome: %q", t.Outcome)
	}
	if t.RiskAmount < 0 {
		return fmt.Errorf("negative risk amount: %.2f", t.RiskAmount)
	}
	return nil
}

// IsWin reports whether the trade closed profitably.
func (t *Trade) IsWin() bool {
	return t.Outcome == OutcomeWin
}
