package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfx-labs/riskguard/internal/config"
	"github.com/openfx-labs/riskguard/internal/state"
	"github.com/openfx-labs/riskguard/pkg/types"
)

func newTestPlane(t *testing.T, opts ...Option) *Plane {
	t.Helper()
	p, err := NewPlane(config.Default(), opts...)
	require.NoError(t, err)
	return p
}

// feedTrendingCandles drives the pair's classifier into TRENDING with a
// steady directional climb and wide bars.
func feedTrendingCandles(p *Plane, pair string, bars int) {
	price := 1.0000
	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		open := price
		price *= 1.01
		p.OnCandle(pair, types.OHLCV{
			Open:      open,
			High:      price * 1.005,
			Low:       open * 0.995,
			Close:     price,
			Volume:    1000,
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
		})
	}
}

func closedIntentTrade(strategy, pair string, profit float64, exitTime time.Time) types.Trade {
	outcome := types.OutcomeWin
	if profit < 0 {
		outcome = types.OutcomeLoss
	}
	return types.Trade{
		StrategyID: strategy,
		Pair:       pair,
		Side:       types.SideLong,
		EntryTime:  exitTime.Add(-6 * time.Hour),
		ExitTime:   exitTime,
		EntryPrice: 1.0850,
		ExitPrice:  1.0900,
		Profit:     profit,
		Outcome:    outcome,
		RiskAmount: 5,
	}
}

func TestPlane_AdmissionDeniedInUnknownRegime(t *testing.T) {
	p := newTestPlane(t)

	d := p.Admit(TradeIntent{
		Strategy:     "eurusd_breakout",
		StrategyType: types.StrategyBreakout,
		Pair:         "EURUSD",
		RiskAmount:   5,
	})

	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "regime")
}

func TestPlane_AdmissionApprovedInTrendingRegime(t *testing.T) {
	p := newTestPlane(t)
	feedTrendingCandles(p, "EURUSD", 40)

	d := p.Admit(TradeIntent{
		Strategy:      "eurusd_breakout",
		StrategyType:  types.StrategyBreakout,
		Pair:          "EURUSD",
		RiskAmount:    5,
		PositionValue: 50,
	})

	require.True(t, d.Approved, "reason: %s", d.Reason)
	assert.InDelta(t, 1.0, d.SizeMultiplier, 1e-9)
}

func TestPlane_MeanReversionDeniedWhileTrending(t *testing.T) {
	p := newTestPlane(t)
	feedTrendingCandles(p, "EURUSD", 40)

	d := p.Admit(TradeIntent{
		Strategy:     "eurusd_breakout",
		StrategyType: types.StrategyMeanReversion,
		Pair:         "EURUSD",
		RiskAmount:   5,
	})

	assert.False(t, d.Approved)
}

func TestPlane_AdmissionDeniedAfterHalt(t *testing.T) {
	p := newTestPlane(t)
	feedTrendingCandles(p, "EURUSD", 40)

	// A 20% portfolio loss trips the drawdown kill switch.
	exit := time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", -100, exit)))

	require.False(t, p.MonitorMetrics().TradingEnabled)

	d := p.Admit(TradeIntent{
		Strategy:     "eurusd_breakout",
		StrategyType: types.StrategyBreakout,
		Pair:         "EURUSD",
		RiskAmount:   5,
	})
	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "halted")

	// Manual override plus force resume reopens the gate.
	p.EnableManualOverride()
	require.True(t, p.ForceResume())

	d = p.Admit(TradeIntent{
		Strategy:     "eurusd_breakout",
		StrategyType: types.StrategyBreakout,
		Pair:         "EURUSD",
		RiskAmount:   5,
	})
	assert.True(t, d.Approved, "reason: %s", d.Reason)
}

func TestPlane_LossStreakShrinksSizeMultiplier(t *testing.T) {
	p := newTestPlane(t)
	feedTrendingCandles(p, "EURUSD", 40)

	exit := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", -5, exit)))
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", -5, exit.Add(time.Hour))))

	d := p.Admit(TradeIntent{
		Strategy:     "eurusd_breakout",
		StrategyType: types.StrategyBreakout,
		Pair:         "EURUSD",
		RiskAmount:   5,
	})
	require.True(t, d.Approved, "reason: %s", d.Reason)
	assert.InDelta(t, 0.5, d.SizeMultiplier, 1e-9)
}

func TestPlane_TradeClosureUpdatesPortfolio(t *testing.T) {
	p := newTestPlane(t)

	exit := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", 25, exit)))

	sum := p.PortfolioSummary()
	assert.InDelta(t, 525.0, sum.TotalCapital, 1e-9)
	assert.Equal(t, 1, sum.Metrics.TotalTrades)
}

func TestPlane_RejectsInvalidTrade(t *testing.T) {
	p := newTestPlane(t)

	err := p.OnTradeClosed(types.Trade{Pair: "EURUSD"})
	assert.Error(t, err)
}

func TestPlane_MonthRolloverSettlesCapital(t *testing.T) {
	p := newTestPlane(t)

	jan := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", 100, jan)))

	// First trade of February settles January: 600 balance, 100
	// profit, half withdrawn.
	feb := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", 10, feb)))

	summary := p.CapitalSummary()
	assert.InDelta(t, 50.0, summary.TotalWithdrawn, 1e-9)
	assert.InDelta(t, 550.0, summary.CurrentCapital, 1e-9)
	assert.InDelta(t, 1.1, summary.PositionSizeMultiplier, 1e-9)
}

func TestPlane_CheckpointAndRestore(t *testing.T) {
	persist := state.NewPersistence(t.TempDir(), "test")
	require.NoError(t, persist.Initialize())

	p := newTestPlane(t, WithPersistence(persist))

	exit := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", 25, exit)))
	require.NoError(t, p.Checkpoint())
	require.True(t, persist.Exists())

	fresh := newTestPlane(t, WithPersistence(persist))
	require.NoError(t, fresh.Restore())

	assert.Equal(t, p.PortfolioSummary(), fresh.PortfolioSummary())
	assert.InDelta(t, p.MonitorMetrics().PeakBalance, fresh.MonitorMetrics().PeakBalance, 1e-9)
}

// stallNotifier blocks inside SendAlert until released, standing in
// for an unresponsive delivery endpoint.
type stallNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (n *stallNotifier) SendAlert(level, message string) error {
	n.entered <- struct{}{}
	<-n.release
	return nil
}

func TestPlane_SlowNotifierDoesNotStallTradeFlow(t *testing.T) {
	n := &stallNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	p := newTestPlane(t, WithNotifier(n))

	day := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", 100, day)))

	// The second closure drops the balance 6.7% off peak and raises a
	// drawdown alert, which the stuck notifier will hold.
	done := make(chan error, 1)
	go func() {
		done <- p.OnTradeClosed(closedIntentTrade("eurusd_breakout", "EURUSD", -40, day.Add(time.Hour)))
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("trade processing stalled behind alert delivery")
	}

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier never received the drawdown alert")
	}

	// Reads stay responsive while the notifier is still held.
	assert.True(t, p.MonitorMetrics().TradingEnabled)
	close(n.release)
}

func TestPlane_AddCapitalGoesThroughCriteriaGate(t *testing.T) {
	p := newTestPlane(t)

	check := p.AddCapital(200)
	assert.False(t, check.Approved)
	assert.NotEmpty(t, check.Reasons)
	assert.InDelta(t, 500.0, p.CapitalSummary().CurrentCapital, 1e-9)
}
