package monitor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/openfx-labs/riskguard/pkg/types"
)

const (
	// dailyPnLWindow is the trailing number of daily PnL samples kept
	// for Sharpe monitoring.
	dailyPnLWindow = 30
	// minSharpeSamples gates the Sharpe check until the window has
	// enough days to be meaningful.
	minSharpeSamples = 10
	// minWinRateTrades gates the win-rate check.
	minWinRateTrades = 20
	// alertDedupWindow suppresses repeat alerts carrying the same tag.
	alertDedupWindow = 24 * time.Hour
	// persistedAlerts caps how much alert history a snapshot carries.
	persistedAlerts = 50

	tradingDaysPerYear = 252
)

// Config holds the kill-switch thresholds.
type Config struct {
	MaxConsecutiveLossDays int
	MaxDrawdownPct         float64
	MinSharpeRatio         float64
	MinWinRatePct          float64
	AlertThresholds        []float64

	// DedupSharpeAlerts and DedupWinRateAlerts apply the 24h tag
	// dedup to the degradation warnings. Off by default: those
	// alerts re-fire on every qualifying trade.
	DedupSharpeAlerts  bool
	DedupWinRateAlerts bool
}

// KillSwitch watches trade flow for loss streaks, drawdown, Sharpe
// degradation and win-rate collapse, and halts trading when hard
// limits are breached. The halt is a logical flag; it never cancels
// in-flight broker orders.
type KillSwitch struct {
	mu sync.Mutex

	cfg Config

	tradingEnabled      bool
	manualOverride      bool
	shutdownReason      string
	consecutiveLossDays int

	currentDay time.Time
	todayPnL   float64
	dailyPnL   []float64

	trades      []types.Trade
	peakBalance float64
	balance     float64

	alerts  []Alert
	pending []Alert
	sinks   []AlertSink

	now func() time.Time
}

// NewKillSwitch creates an enabled monitor with the given thresholds.
// Alert thresholds are evaluated in ascending order.
func NewKillSwitch(cfg Config, sinks ...AlertSink) *KillSwitch {
	thresholds := append([]float64(nil), cfg.AlertThresholds...)
	for i := 1; i < len(thresholds); i++ {
		for j := i; j > 0 && thresholds[j] < thresholds[j-1]; j-- {
			thresholds[j], thresholds[j-1] = thresholds[j-1], thresholds[j]
		}
	}
	cfg.AlertThresholds = thresholds

	return &KillSwitch{
		cfg:            cfg,
		tradingEnabled: true,
		sinks:          sinks,
		now:            time.Now,
	}
}

// UpdateTrade processes a trade-closure event. Within one strategy,
// callers must deliver trades in increasing exit-time order; the
// day-rollover bookkeeping depends on it.
func (k *KillSwitch) UpdateTrade(trade types.Trade, currentBalance float64) {
	k.mu.Lock()

	k.trades = append(k.trades, trade)
	k.balance = currentBalance

	if currentBalance > k.peakBalance {
		k.peakBalance = currentBalance
	}

	day := trade.ExitTime.UTC().Truncate(24 * time.Hour)
	switch {
	case k.currentDay.IsZero():
		k.currentDay = day
	case !day.Equal(k.currentDay):
		k.dailyPnL = append(k.dailyPnL, k.todayPnL)
		if len(k.dailyPnL) > dailyPnLWindow {
			k.dailyPnL = k.dailyPnL[1:]
		}
		if k.todayPnL < 0 {
			k.consecutiveLossDays++
		} else {
			k.consecutiveLossDays = 0
		}
		k.currentDay = day
		k.todayPnL = 0
	}
	k.todayPnL += trade.Profit

	if !k.manualOverride {
		k.checkKillSwitchesLocked(currentBalance)
	}

	raised := k.pending
	k.pending = nil
	k.mu.Unlock()

	// Sink delivery happens with the lock released. A slow sink delays
	// only this call, never concurrent readers.
	for _, alert := range raised {
		for _, sink := range k.sinks {
			sink.Notify(alert)
		}
	}
}

func (k *KillSwitch) checkKillSwitchesLocked(balance float64) {
	if k.consecutiveLossDays >= k.cfg.MaxConsecutiveLossDays {
		k.shutdownLocked(fmt.Sprintf("CONSECUTIVE_LOSS_DAYS: %d days", k.consecutiveLossDays), balance)
		return
	}

	if k.peakBalance > 0 {
		drawdownPct := (k.peakBalance - balance) / k.peakBalance

		if drawdownPct >= k.cfg.MaxDrawdownPct {
			k.shutdownLocked(fmt.Sprintf("MAX_DRAWDOWN: %.1f%% (limit: %.0f%%)",
				drawdownPct*100, k.cfg.MaxDrawdownPct*100), balance)
			return
		}

		for _, threshold := range k.cfg.AlertThresholds {
			if drawdownPct < threshold {
				continue
			}
			tag := fmt.Sprintf("DD_%.0f", threshold*100)
			if k.hasRecentAlertLocked(tag) {
				continue
			}
			k.raiseAlertLocked(AlertWarning,
				fmt.Sprintf("Drawdown reached %.1f%%", drawdownPct*100), balance, tag)
		}
	}

	if len(k.dailyPnL) >= minSharpeSamples {
		sharpe := sharpeRatio(k.dailyPnL)
		if sharpe < k.cfg.MinSharpeRatio {
			tag := ""
			if k.cfg.DedupSharpeAlerts {
				tag = "SHARPE"
			}
			if tag == "" || !k.hasRecentAlertLocked(tag) {
				k.raiseAlertLocked(AlertWarning,
					fmt.Sprintf("Sharpe ratio degraded to %.2f", sharpe), balance, tag)
			}
		}
	}

	if len(k.trades) >= minWinRateTrades {
		winRate := k.winRateLocked()
		if winRate < k.cfg.MinWinRatePct {
			tag := ""
			if k.cfg.DedupWinRateAlerts {
				tag = "WIN_RATE"
			}
			if tag == "" || !k.hasRecentAlertLocked(tag) {
				k.raiseAlertLocked(AlertCritical,
					fmt.Sprintf("Win rate dropped to %.1f%%", winRate), balance, tag)
			}
		}
	}
}

func (k *KillSwitch) shutdownLocked(reason string, balance float64) {
	k.tradingEnabled = false
	k.shutdownReason = reason
	k.raiseAlertLocked(AlertCritical, "TRADING HALTED: "+reason, balance, "")
}

func (k *KillSwitch) raiseAlertLocked(level AlertLevel, message string, balance float64, tag string) {
	alert := Alert{
		Timestamp: k.now().UTC(),
		Level:     level,
		Message:   message,
		Balance:   balance,
		Tag:       tag,
	}
	k.alerts = append(k.alerts, alert)
	k.pending = append(k.pending, alert)
}

func (k *KillSwitch) hasRecentAlertLocked(tag string) bool {
	cutoff := k.now().UTC().Add(-alertDedupWindow)
	for i := len(k.alerts) - 1; i >= 0; i-- {
		if k.alerts[i].Timestamp.Before(cutoff) {
			return false
		}
		if k.alerts[i].Tag == tag {
			return true
		}
	}
	return false
}

// sharpeRatio annualizes mean/stdev of the daily PnL window using the
// sample standard deviation. Zero when the window is degenerate.
func sharpeRatio(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(len(window))

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(window) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

func (k *KillSwitch) winRateLocked() float64 {
	if len(k.trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range k.trades {
		if t.IsWin() {
			wins++
		}
	}
	return 100 * float64(wins) / float64(len(k.trades))
}

func (k *KillSwitch) profitFactorLocked() float64 {
	var grossProfit, grossLoss float64
	for _, t := range k.trades {
		if t.Profit > 0 {
			grossProfit += t.Profit
		} else if t.Profit < 0 {
			grossLoss += -t.Profit
		}
	}
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / grossLoss
}

// TradingEnabled reports whether automatic checks currently allow new
// entries.
func (k *KillSwitch) TradingEnabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tradingEnabled
}

// ShutdownReason returns the recorded halt reason, empty while trading
// is enabled.
func (k *KillSwitch) ShutdownReason() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.shutdownReason
}

// EnableManualOverride bypasses all automatic checks until disabled.
func (k *KillSwitch) EnableManualOverride() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.manualOverride = true
}

// DisableManualOverride re-arms the automatic checks.
func (k *KillSwitch) DisableManualOverride() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.manualOverride = false
}

// ForceResume restarts trading after a halt. It only succeeds while
// manual override is active.
func (k *KillSwitch) ForceResume() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.manualOverride {
		return false
	}
	k.tradingEnabled = true
	k.shutdownReason = ""
	k.consecutiveLossDays = 0
	return true
}

// Metrics computes the performance snapshot over the full trade
// history.
func (k *KillSwitch) Metrics() Metrics {
	k.mu.Lock()
	defer k.mu.Unlock()

	var drawdown, drawdownPct float64
	if k.peakBalance > 0 {
		drawdown = k.peakBalance - k.balance
		drawdownPct = drawdown / k.peakBalance
	}

	return Metrics{
		TradingEnabled:      k.tradingEnabled,
		ManualOverride:      k.manualOverride,
		ShutdownReason:      k.shutdownReason,
		TotalTrades:         len(k.trades),
		WinRate:             k.winRateLocked(),
		SharpeRatio:         sharpeRatio(k.dailyPnL),
		ProfitFactor:        k.profitFactorLocked(),
		ConsecutiveLossDays: k.consecutiveLossDays,
		CurrentBalance:      k.balance,
		PeakBalance:         k.peakBalance,
		Drawdown:            drawdown,
		DrawdownPct:         drawdownPct * 100,
		TodayPnL:            k.todayPnL,
	}
}

// Alerts returns a copy of the alert history.
func (k *KillSwitch) Alerts() []Alert {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Alert(nil), k.alerts...)
}

// Snapshot exports the monitor state for persistence. Alert history is
// truncated to the most recent entries.
func (k *KillSwitch) Snapshot() State {
	k.mu.Lock()
	defer k.mu.Unlock()

	alerts := k.alerts
	if len(alerts) > persistedAlerts {
		alerts = alerts[len(alerts)-persistedAlerts:]
	}

	return State{
		TradingEnabled:      k.tradingEnabled,
		ManualOverride:      k.manualOverride,
		ShutdownReason:      k.shutdownReason,
		ConsecutiveLossDays: k.consecutiveLossDays,
		PeakBalance:         k.peakBalance,
		CurrentDay:          k.currentDay,
		TodayPnL:            k.todayPnL,
		DailyPnL:            append([]float64(nil), k.dailyPnL...),
		Alerts:              append([]Alert(nil), alerts...),
		LastUpdate:          k.now().UTC(),
	}
}

// Restore replaces the monitor state from a persisted snapshot. Trade
// history is not persisted; win-rate and profit-factor checks restart
// from the restore point.
func (k *KillSwitch) Restore(state State) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.tradingEnabled = state.TradingEnabled
	k.manualOverride = state.ManualOverride
	k.shutdownReason = state.ShutdownReason
	k.consecutiveLossDays = state.ConsecutiveLossDays
	k.peakBalance = state.PeakBalance
	k.currentDay = state.CurrentDay
	k.todayPnL = state.TodayPnL
	k.dailyPnL = append([]float64(nil), state.DailyPnL...)
	k.alerts = append([]Alert(nil), state.Alerts...)
}
