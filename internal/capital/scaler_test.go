package capital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScalerConfig() Config {
	return Config{
		InitialCapital: 500,
		WithdrawalPct:  0.50,
		MinSharpeToAdd: 2.0,
		MinMonthsToAdd: 3,
	}
}

func TestScaler_ProfitableMonthSplitsProfit(t *testing.T) {
	s := NewScaler(testScalerConfig())

	res := s.UpdateMonthEnd(600, 2.3, true)

	assert.InDelta(t, 100.0, res.Profit, 1e-9)
	assert.InDelta(t, 50.0, res.Withdrawn, 1e-9)
	assert.InDelta(t, 50.0, res.Reinvested, 1e-9)
	assert.InDelta(t, 550.0, res.NewCapital, 1e-9)
	assert.InDelta(t, 20.0, res.ReturnPct, 1e-9)

	history := s.WithdrawalHistory()
	require.Len(t, history, 1)
	assert.InDelta(t, 50.0, history[0].Withdrawn, 1e-9)
	assert.InDelta(t, 50.0, history[0].TotalWithdrawn, 1e-9)
}

func TestScaler_LosingMonthAbsorbsLoss(t *testing.T) {
	s := NewScaler(testScalerConfig())

	res := s.UpdateMonthEnd(460, -0.5, true)

	assert.InDelta(t, -40.0, res.Profit, 1e-9)
	assert.Zero(t, res.Withdrawn)
	assert.InDelta(t, 460.0, res.NewCapital, 1e-9)
	assert.Empty(t, s.WithdrawalHistory())

	// Peak stays at the starting level.
	assert.InDelta(t, 500.0, s.Summary().PeakCapital, 1e-9)
}

func TestScaler_FlatMonthIsBookkeepingOnly(t *testing.T) {
	s := NewScaler(testScalerConfig())

	res := s.UpdateMonthEnd(500, 0, false)

	assert.Zero(t, res.Profit)
	assert.InDelta(t, 500.0, res.NewCapital, 1e-9)
	assert.Equal(t, 1, s.Summary().MonthsTracked)
}

func TestScaler_CapitalAddRequiresHistory(t *testing.T) {
	s := NewScaler(testScalerConfig())

	check := s.CheckCapitalAddCriteria()
	assert.False(t, check.Approved)
	assert.Contains(t, check.Reasons[0], "Need 3 months of performance (have 0)")

	// Rejected adds leave capital untouched.
	res := s.AddCapital(200)
	assert.False(t, res.Approved)
	assert.InDelta(t, 500.0, s.CurrentCapital(), 1e-9)
}

func TestScaler_CapitalAddApprovedAfterStrongMonths(t *testing.T) {
	s := NewScaler(testScalerConfig())

	balance := 500.0
	for _, m := range []struct {
		profit float64
		sharpe float64
	}{{100, 2.3}, {120, 2.5}, {90, 2.2}} {
		balance = s.CurrentCapital() + m.profit
		s.UpdateMonthEnd(balance, m.sharpe, true)
	}

	check := s.CheckCapitalAddCriteria()
	require.True(t, check.Approved, "reasons: %v", check.Reasons)
	assert.Len(t, check.Reasons, 3)

	before := s.CurrentCapital()
	res := s.AddCapital(250)
	assert.True(t, res.Approved)
	assert.InDelta(t, before+250, s.CurrentCapital(), 1e-9)
	assert.InDelta(t, 250.0, s.Summary().TotalAdded, 1e-9)
}

func TestScaler_CapitalAddRejectedOnWeakSharpe(t *testing.T) {
	s := NewScaler(testScalerConfig())

	for _, sharpe := range []float64{1.2, 1.5, 1.1} {
		s.UpdateMonthEnd(s.CurrentCapital()+50, sharpe, true)
	}

	check := s.CheckCapitalAddCriteria()
	assert.False(t, check.Approved)
	assert.Contains(t, check.Reasons[0], "below 2.00")
}

func TestScaler_CapitalAddRejectedOnLosingMonths(t *testing.T) {
	s := NewScaler(testScalerConfig())

	s.UpdateMonthEnd(480, 2.5, true)
	s.UpdateMonthEnd(460, 2.5, true)
	s.UpdateMonthEnd(560, 2.5, true)

	check := s.CheckCapitalAddCriteria()
	assert.False(t, check.Approved)

	var found bool
	for _, r := range check.Reasons {
		if r == "2 losing months in last 3 months" {
			found = true
		}
	}
	assert.True(t, found, "reasons: %v", check.Reasons)
}

func TestScaler_CapitalAddRejectedInDrawdown(t *testing.T) {
	s := NewScaler(testScalerConfig())

	// Build a peak, then fall more than 5% below it.
	s.UpdateMonthEnd(700, 2.5, true)
	s.UpdateMonthEnd(700, 2.5, true)
	s.UpdateMonthEnd(560, 2.5, true)

	check := s.CheckCapitalAddCriteria()
	assert.False(t, check.Approved)

	var found bool
	for _, r := range check.Reasons {
		if len(r) >= 11 && r[:11] == "In drawdown" {
			found = true
		}
	}
	assert.True(t, found, "reasons: %v", check.Reasons)
}

func TestScaler_PositionSizeMultiplierTracksRealizedGrowth(t *testing.T) {
	s := NewScaler(testScalerConfig())
	assert.InDelta(t, 1.0, s.PositionSizeMultiplier(), 1e-9)

	// 100 profit compounds only the reinvested half.
	s.UpdateMonthEnd(600, 2.3, true)
	assert.InDelta(t, 1.1, s.PositionSizeMultiplier(), 1e-9)
}

func TestScaler_SummaryIncludesWithdrawnValue(t *testing.T) {
	s := NewScaler(testScalerConfig())

	s.UpdateMonthEnd(600, 2.3, true)
	sum := s.Summary()

	assert.InDelta(t, 550.0, sum.CurrentCapital, 1e-9)
	assert.InDelta(t, 50.0, sum.TotalWithdrawn, 1e-9)
	assert.InDelta(t, 600.0, sum.TotalValue, 1e-9)
	assert.InDelta(t, 10.0, sum.CapitalROIPct, 1e-9)
	assert.InDelta(t, 20.0, sum.TotalValueROIPct, 1e-9)
}

func TestScaler_SnapshotRestoreRoundTrip(t *testing.T) {
	s := NewScaler(testScalerConfig())
	s.UpdateMonthEnd(600, 2.3, true)
	s.UpdateMonthEnd(580, 1.1, true)

	snap := s.Snapshot()

	restored := NewScaler(testScalerConfig())
	restored.Restore(snap)

	assert.Equal(t, s.Summary(), restored.Summary())
	assert.Equal(t, s.CheckCapitalAddCriteria(), restored.CheckCapitalAddCriteria())
}
