package monitor

import "time"

// AlertLevel grades alert severity.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one entry in the append-only alert log. Tag identifies the
// triggering condition for time-window deduplication; it is empty for
// alerts that always fire.
type Alert struct {
	Timestamp time.Time  `json:"timestamp"`
	Level     AlertLevel `json:"level"`
	Message   string     `json:"message"`
	Balance   float64    `json:"balance"`
	Tag       string     `json:"tag,omitempty"`
}

// AlertSink receives alerts as they are raised. Delivery runs after
// the monitor releases its lock, so a slow sink delays only the
// goroutine that triggered the alert.
type AlertSink interface {
	Notify(alert Alert)
}

// Metrics is the monitor's on-demand performance snapshot.
type Metrics struct {
	TradingEnabled      bool    `json:"trading_enabled"`
	ManualOverride      bool    `json:"manual_override"`
	ShutdownReason      string  `json:"shutdown_reason,omitempty"`
	TotalTrades         int     `json:"total_trades"`
	WinRate             float64 `json:"win_rate"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	ProfitFactor        float64 `json:"profit_factor"`
	ConsecutiveLossDays int     `json:"consecutive_loss_days"`
	CurrentBalance      float64 `json:"current_balance"`
	PeakBalance         float64 `json:"peak_balance"`
	Drawdown            float64 `json:"drawdown"`
	DrawdownPct         float64 `json:"drawdown_pct"`
	TodayPnL            float64 `json:"today_pnl"`
}

// State is the persistable portion of the monitor.
type State struct {
	TradingEnabled      bool      `json:"trading_enabled"`
	ManualOverride      bool      `json:"manual_override"`
	ShutdownReason      string    `json:"shutdown_reason,omitempty"`
	ConsecutiveLossDays int       `json:"consecutive_loss_days"`
	PeakBalance         float64   `json:"peak_balance"`
	CurrentDay          time.Time `json:"current_day"`
	TodayPnL            float64   `json:"today_pnl"`
	DailyPnL            []float64 `json:"daily_pnl"`
	Alerts              []Alert   `json:"alerts"`
	LastUpdate          time.Time `json:"last_update"`
}
