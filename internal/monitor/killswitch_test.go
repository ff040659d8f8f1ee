package monitor

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfx-labs/riskguard/pkg/types"
)

func testKillSwitchConfig() Config {
	return Config{
		MaxConsecutiveLossDays: 3,
		MaxDrawdownPct:         0.15,
		MinSharpeRatio:         0.5,
		MinWinRatePct:          50,
		AlertThresholds:        []float64{0.05, 0.10, 0.15},
	}
}

func tradeOn(day int, hour int, profit float64) types.Trade {
	outcome := types.OutcomeWin
	if profit < 0 {
		outcome = types.OutcomeLoss
	}
	return types.Trade{
		StrategyID: "eurusd_breakout",
		Pair:       "EURUSD",
		Side:       types.SideLong,
		ExitTime:   time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC),
		Profit:     profit,
		Outcome:    outcome,
	}
}

func TestKillSwitch_ConsecutiveLossDaysShutdown(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	balance := 500.0
	for day := 1; day <= 3; day++ {
		balance -= 5
		k.UpdateTrade(tradeOn(day, 12, -5), balance)
	}
	// Loss days are counted at rollover, so the halt lands on the
	// first event of the following day.
	assert.True(t, k.TradingEnabled())

	balance -= 1
	k.UpdateTrade(tradeOn(4, 9, -1), balance)

	assert.False(t, k.TradingEnabled())
	assert.Equal(t, "CONSECUTIVE_LOSS_DAYS: 3 days", k.ShutdownReason())
}

func TestKillSwitch_WinningDayResetsLossStreak(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	k.UpdateTrade(tradeOn(1, 12, -5), 495)
	k.UpdateTrade(tradeOn(2, 12, -5), 490)
	k.UpdateTrade(tradeOn(3, 12, 20), 510)
	k.UpdateTrade(tradeOn(4, 12, -5), 505)
	k.UpdateTrade(tradeOn(5, 12, -5), 500)

	assert.True(t, k.TradingEnabled())
	assert.Equal(t, 1, k.Metrics().ConsecutiveLossDays)
}

func TestKillSwitch_MaxDrawdownShutdown(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 14, -90), 510)

	// Drawdown 15% of the 600 peak.
	assert.False(t, k.TradingEnabled())
	assert.Equal(t, "MAX_DRAWDOWN: 15.0% (limit: 15%)", k.ShutdownReason())
}

func TestKillSwitch_DrawdownAlertsDeduplicated(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	k.now = func() time.Time { return clock }

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 11, -40), 560)

	alerts := k.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertWarning, alerts[0].Level)
	assert.Equal(t, "DD_5", alerts[0].Tag)

	// Same threshold within 24h stays quiet.
	clock = clock.Add(2 * time.Hour)
	k.UpdateTrade(tradeOn(1, 13, -1), 559)
	assert.Len(t, k.Alerts(), 1)

	// A deeper threshold is a different tag.
	clock = clock.Add(time.Hour)
	k.UpdateTrade(tradeOn(1, 14, -24), 535)
	alerts = k.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "DD_10", alerts[1].Tag)

	// After the window expires the first tag re-fires.
	clock = clock.Add(25 * time.Hour)
	k.UpdateTrade(tradeOn(2, 16, 1), 536)
	assert.Len(t, k.Alerts(), 4)
}

func TestKillSwitch_WinRateAlert(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	balance := 500.0
	for i := 0; i < 8; i++ {
		balance += 5
		k.UpdateTrade(tradeOn(1, 1+i, 5), balance)
	}
	for i := 0; i < 12; i++ {
		balance -= 2
		k.UpdateTrade(tradeOn(2, 1+i, -2), balance)
	}

	// 8/20 = 40% win rate once the 20-trade gate opens.
	var critical []Alert
	for _, a := range k.Alerts() {
		if a.Level == AlertCritical {
			critical = append(critical, a)
		}
	}
	require.NotEmpty(t, critical)
	assert.Contains(t, critical[0].Message, "Win rate dropped to 40.0%")
	assert.True(t, k.TradingEnabled())
}

func TestKillSwitch_ManualOverrideBypassesChecks(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())
	k.EnableManualOverride()

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 14, -120), 480)

	// 20% drawdown, but the override suppresses the halt.
	assert.True(t, k.TradingEnabled())
	assert.Empty(t, k.Alerts())
}

func TestKillSwitch_ForceResumeRequiresOverride(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 14, -100), 500)
	require.False(t, k.TradingEnabled())

	assert.False(t, k.ForceResume())
	assert.False(t, k.TradingEnabled())

	k.EnableManualOverride()
	assert.True(t, k.ForceResume())
	assert.True(t, k.TradingEnabled())
	assert.Empty(t, k.ShutdownReason())
	assert.Equal(t, 0, k.Metrics().ConsecutiveLossDays)
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	assert.Equal(t, 0.0, sharpeRatio([]float64{5}))
	assert.Equal(t, 0.0, sharpeRatio([]float64{5, 5, 5}))

	// mean=1, sample std=1, annualized by sqrt(252).
	window := []float64{0, 1, 2}
	assert.InDelta(t, math.Sqrt(252), sharpeRatio(window), 1e-9)
}

func TestKillSwitch_SharpeDegradationAlert(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	// Ten volatile, net-negative days fill the window with a poor
	// Sharpe; the alert fires on the first check after day ten rolls
	// over.
	balance := 500.0
	for day := 1; day <= 11; day++ {
		pnl := -4.0
		if day%2 == 0 {
			pnl = 3.0
		}
		balance += pnl
		k.UpdateTrade(tradeOn(day, 12, pnl), balance)
	}

	var found bool
	for _, a := range k.Alerts() {
		if a.Level == AlertWarning && len(a.Message) > 0 && a.Message[:6] == "Sharpe" {
			found = true
		}
	}
	assert.True(t, found, "expected a Sharpe degradation warning, got %v", k.Alerts())
}

func TestKillSwitch_SnapshotRestoreRoundTrip(t *testing.T) {
	k := NewKillSwitch(testKillSwitchConfig())

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 14, -40), 560)
	k.UpdateTrade(tradeOn(2, 10, -5), 555)

	snap := k.Snapshot()

	restored := NewKillSwitch(testKillSwitchConfig())
	restored.Restore(snap)

	m, rm := k.Metrics(), restored.Metrics()
	assert.Equal(t, m.TradingEnabled, rm.TradingEnabled)
	assert.Equal(t, m.ConsecutiveLossDays, rm.ConsecutiveLossDays)
	assert.Equal(t, m.PeakBalance, rm.PeakBalance)
	assert.Equal(t, m.TodayPnL, rm.TodayPnL)
	assert.Equal(t, k.Alerts(), restored.Alerts())
}

type captureSink struct {
	alerts []Alert
}

func (c *captureSink) Notify(alert Alert) { c.alerts = append(c.alerts, alert) }

func TestKillSwitch_AlertsReachSinks(t *testing.T) {
	sink := &captureSink{}
	k := NewKillSwitch(testKillSwitchConfig(), sink)

	k.UpdateTrade(tradeOn(1, 10, 100), 600)
	k.UpdateTrade(tradeOn(1, 14, -100), 500)

	require.NotEmpty(t, sink.alerts)
	last := sink.alerts[len(sink.alerts)-1]
	assert.Equal(t, AlertCritical, last.Level)
	assert.Equal(t, fmt.Sprintf("TRADING HALTED: %s", k.ShutdownReason()), last.Message)
}

// blockingSink parks inside Notify until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSink) Notify(Alert) {
	s.entered <- struct{}{}
	<-s.release
}

func TestKillSwitch_SlowSinkDoesNotBlockReaders(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	k := NewKillSwitch(testKillSwitchConfig(), sink)

	k.UpdateTrade(tradeOn(1, 10, 100), 600)

	done := make(chan struct{})
	go func() {
		// 6.7% off peak, raises the 5% drawdown warning.
		k.UpdateTrade(tradeOn(1, 11, -40), 560)
		close(done)
	}()

	<-sink.entered

	enabled := make(chan bool, 1)
	go func() { enabled <- k.TradingEnabled() }()

	select {
	case v := <-enabled:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("TradingEnabled blocked behind alert delivery")
	}

	close(sink.release)
	<-done
}
