package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500.0, cfg.Portfolio.TotalCapital)
	assert.Equal(t, 3, cfg.Monitor.MaxConsecutiveLossDays)
	assert.Equal(t, 0.15, cfg.Monitor.MaxDrawdownPct)
	assert.Equal(t, 0.50, cfg.Capital.WithdrawalPct)
	assert.Equal(t, 25.0, cfg.Regime.ADXTrendThreshold)
	assert.Equal(t, 20.0, cfg.Regime.ADXRangeThreshold)
	assert.Equal(t, 0.7, cfg.Portfolio.GBPCorrelationWeight)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account: paper
portfolio:
  total_capital: 1000
  allocation_weights:
    eurusd_breakout: 0.5
    gbpusd_breakout: 0.5
  max_portfolio_risk_pct: 0.10
  max_correlation_exposure: 0.40
  gbp_correlation_weight: 0.7
monitor:
  max_consecutive_loss_days: 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Account)
	assert.Equal(t, 1000.0, cfg.Portfolio.TotalCapital)
	assert.Equal(t, 0.10, cfg.Portfolio.MaxPortfolioRiskPct)
	assert.Equal(t, 5, cfg.Monitor.MaxConsecutiveLossDays)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, 0.50, cfg.Capital.WithdrawalPct)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("RISKGUARD_TOTAL_CAPITAL", "750")
	t.Setenv("RISKGUARD_MAX_DRAWDOWN_PCT", "0.10")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 750.0, cfg.Portfolio.TotalCapital)
	assert.Equal(t, 0.10, cfg.Monitor.MaxDrawdownPct)
}

func TestValidate_RejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Portfolio.AllocationWeights = map[string]float64{
		"eurusd_breakout": 0.6,
		"gbpusd_breakout": 0.6,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestValidate_RejectsInvertedADXThresholds(t *testing.T) {
	cfg := Default()
	cfg.Regime.ADXTrendThreshold = 18

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must exceed range threshold")
}

func TestLoad_RejectsUnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not a config :::"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
