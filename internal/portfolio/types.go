package portfolio

import "github.com/openfx-labs/riskguard/pkg/types"

// Strategy holds the per-strategy slice of portfolio capital and its
// cumulative trade statistics. Owned exclusively by the Coordinator.
type Strategy struct {
	ID               string  `json:"id"`
	AllocatedCapital float64 `json:"allocated_capital"`
	CurrentBalance   float64 `json:"current_balance"`
	PeakBalance      float64 `json:"peak_balance"`
	TotalTrades      int     `json:"total_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	Profit           float64 `json:"profit"`
	Drawdown         float64 `json:"drawdown"`
	Active           bool    `json:"active"`
}

// WinRate returns the strategy win rate as a percentage.
func (s *Strategy) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return 100 * float64(s.Wins) / float64(s.TotalTrades)
}

// OpenPosition is a currently held position registered with the
// coordinator for risk accounting.
type OpenPosition struct {
	Strategy      string  `json:"strategy"`
	Pair          string  `json:"pair"`
	RiskAmount    float64 `json:"risk_amount"`
	PositionValue float64 `json:"position_value"`
}

// RiskStatus reports current portfolio risk exposure and whether new
// trades fit inside the configured budgets.
type RiskStatus struct {
	TotalRiskAmount float64 `json:"total_risk_amount"`
	TotalRiskPct    float64 `json:"total_risk_pct"`
	EURExposurePct  float64 `json:"eur_exposure_pct"`
	AllowNewTrades  bool    `json:"allow_new_trades"`
	AllowEURTrades  bool    `json:"allow_eur_trades"`
}

// Metrics aggregates portfolio performance across all strategies.
type Metrics struct {
	TotalTrades     int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	TotalProfit     float64 `json:"total_profit"`
	CurrentBalance  float64 `json:"current_balance"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	ProfitFactor    float64 `json:"profit_factor"`
	ReturnPct       float64 `json:"return_pct"`
}

// Summary is a read-only snapshot of the full portfolio for dashboards
// and logging.
type Summary struct {
	TotalCapital   float64             `json:"total_capital"`
	InitialCapital float64             `json:"initial_capital"`
	PeakCapital    float64             `json:"peak_capital"`
	Metrics        Metrics             `json:"metrics"`
	Strategies     map[string]Strategy `json:"strategies"`
	RiskStatus     RiskStatus          `json:"risk_status"`
}

// State is the persistable portion of the coordinator, restored across
// restarts.
type State struct {
	TotalCapital   float64                   `json:"total_capital"`
	InitialCapital float64                   `json:"initial_capital"`
	PeakCapital    float64                   `json:"peak_capital"`
	Strategies     map[string]*Strategy      `json:"strategies"`
	OpenPositions  map[string][]OpenPosition `json:"open_positions"`
	Trades         []types.Trade             `json:"trades"`
	Metrics        Metrics                   `json:"metrics"`
}
