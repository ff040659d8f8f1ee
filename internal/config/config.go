package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the complete control-plane configuration. Values resolve
// in three layers: defaults, then an optional YAML/JSON file, then
// environment overrides.
type Config struct {
	Account    string           `json:"account" yaml:"account"`
	Portfolio  PortfolioConfig  `json:"portfolio" yaml:"portfolio"`
	Monitor    MonitorConfig    `json:"monitor" yaml:"monitor"`
	Capital    CapitalConfig    `json:"capital" yaml:"capital"`
	Regime     RegimeConfig     `json:"regime" yaml:"regime"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Monitoring MonitoringConfig `json:"monitoring" yaml:"monitoring"`
	Telegram   TelegramConfig   `json:"telegram" yaml:"telegram"`
	StateDir   string           `json:"state_dir" yaml:"state_dir"`
}

// PortfolioConfig contains capital allocation and risk budgets.
type PortfolioConfig struct {
	TotalCapital           float64            `json:"total_capital" yaml:"total_capital"`
	AllocationWeights      map[string]float64 `json:"allocation_weights" yaml:"allocation_weights"`
	MaxPortfolioRiskPct    float64            `json:"max_portfolio_risk_pct" yaml:"max_portfolio_risk_pct"`
	MaxCorrelationExposure float64            `json:"max_correlation_exposure" yaml:"max_correlation_exposure"`
	GBPCorrelationWeight   float64            `json:"gbp_correlation_weight" yaml:"gbp_correlation_weight"`
}

// MonitorConfig contains kill-switch thresholds.
type MonitorConfig struct {
	MaxConsecutiveLossDays int       `json:"max_consecutive_loss_days" yaml:"max_consecutive_loss_days"`
	MaxDrawdownPct         float64   `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	MinSharpeRatio         float64   `json:"min_sharpe_ratio" yaml:"min_sharpe_ratio"`
	MinWinRatePct          float64   `json:"min_win_rate_pct" yaml:"min_win_rate_pct"`
	AlertThresholds        []float64 `json:"alert_thresholds" yaml:"alert_thresholds"`
	DedupSharpeAlerts      bool      `json:"dedup_sharpe_alerts" yaml:"dedup_sharpe_alerts"`
	DedupWinRateAlerts     bool      `json:"dedup_win_rate_alerts" yaml:"dedup_win_rate_alerts"`
}

// CapitalConfig contains profit withdrawal and capital-add gating.
type CapitalConfig struct {
	WithdrawalPct  float64 `json:"withdrawal_pct" yaml:"withdrawal_pct"`
	MinSharpeToAdd float64 `json:"min_sharpe_for_add" yaml:"min_sharpe_for_add"`
	MinMonthsToAdd int     `json:"min_months_for_add" yaml:"min_months_for_add"`
}

// RegimeConfig contains ADX classification thresholds.
type RegimeConfig struct {
	ADXTrendThreshold float64 `json:"adx_trend_threshold" yaml:"adx_trend_threshold"`
	ADXRangeThreshold float64 `json:"adx_range_threshold" yaml:"adx_range_threshold"`
}

// JournalConfig contains trade ledger persistence parameters.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path"`
}

// MonitoringConfig contains observability endpoints.
type MonitoringConfig struct {
	PrometheusPort int `json:"prometheus_port" yaml:"prometheus_port"`
	HealthPort     int `json:"health_port" yaml:"health_port"`
}

// TelegramConfig contains alert delivery credentials.
type TelegramConfig struct {
	Token  string `json:"token" yaml:"token"`
	ChatID string `json:"chat_id" yaml:"chat_id"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Account: "live",
		Portfolio: PortfolioConfig{
			TotalCapital: 500,
			AllocationWeights: map[string]float64{
				"eurusd_breakout": 1.0 / 3.0,
				"gbpusd_breakout": 1.0 / 3.0,
				"usdjpy_trend":    1.0 / 3.0,
			},
			MaxPortfolioRiskPct:    0.20,
			MaxCorrelationExposure: 0.50,
			GBPCorrelationWeight:   0.7,
		},
		Monitor: MonitorConfig{
			MaxConsecutiveLossDays: 3,
			MaxDrawdownPct:         0.15,
			MinSharpeRatio:         0.5,
			MinWinRatePct:          50,
			AlertThresholds:        []float64{0.05, 0.10, 0.15},
		},
		Capital: CapitalConfig{
			WithdrawalPct:  0.50,
			MinSharpeToAdd: 2.0,
			MinMonthsToAdd: 3,
		},
		Regime: RegimeConfig{
			ADXTrendThreshold: 25,
			ADXRangeThreshold: 20,
		},
		Journal: JournalConfig{
			Enabled: true,
			DBPath:  "data/riskguard.db",
		},
		Monitoring: MonitoringConfig{
			PrometheusPort: 8080,
			HealthPort:     8081,
		},
		StateDir: "data/state",
	}
}

// Load resolves the configuration from defaults, an optional file, and
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, c); err != nil {
		if jsonErr := json.Unmarshal(data, c); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Account = getEnv("RISKGUARD_ACCOUNT", c.Account)
	c.StateDir = getEnv("RISKGUARD_STATE_DIR", c.StateDir)
	c.Portfolio.TotalCapital = getEnvFloat("RISKGUARD_TOTAL_CAPITAL", c.Portfolio.TotalCapital)
	c.Portfolio.MaxPortfolioRiskPct = getEnvFloat("RISKGUARD_MAX_PORTFOLIO_RISK_PCT", c.Portfolio.MaxPortfolioRiskPct)
	c.Portfolio.MaxCorrelationExposure = getEnvFloat("RISKGUARD_MAX_CORRELATION_EXPOSURE", c.Portfolio.MaxCorrelationExposure)
	c.Monitor.MaxConsecutiveLossDays = getEnvInt("RISKGUARD_MAX_CONSECUTIVE_LOSS_DAYS", c.Monitor.MaxConsecutiveLossDays)
	c.Monitor.MaxDrawdownPct = getEnvFloat("RISKGUARD_MAX_DRAWDOWN_PCT", c.Monitor.MaxDrawdownPct)
	c.Monitor.MinSharpeRatio = getEnvFloat("RISKGUARD_MIN_SHARPE_RATIO", c.Monitor.MinSharpeRatio)
	c.Monitor.MinWinRatePct = getEnvFloat("RISKGUARD_MIN_WIN_RATE_PCT", c.Monitor.MinWinRatePct)
	c.Capital.WithdrawalPct = getEnvFloat("RISKGUARD_WITHDRAWAL_PCT", c.Capital.WithdrawalPct)
	c.Journal.DBPath = getEnv("RISKGUARD_JOURNAL_DB", c.Journal.DBPath)
	c.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", c.Monitoring.PrometheusPort)
	c.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", c.Monitoring.HealthPort)
	c.Telegram.Token = getEnv("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", c.Telegram.ChatID)
}

// Validate checks every configured figure. Failures here are fatal at
// startup, never recovered from at runtime.
func (c *Config) Validate() error {
	if c.Portfolio.TotalCapital <= 0 {
		return fmt.Errorf("total capital must be positive, got %.2f", c.Portfolio.TotalCapital)
	}
	if len(c.Portfolio.AllocationWeights) == 0 {
		return fmt.Errorf("no allocation weights configured")
	}
	sum := 0.0
	for name, w := range c.Portfolio.AllocationWeights {
		if w < 0 {
			return fmt.Errorf("negative allocation weight for %s: %.4f", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("allocation weights must sum to 1.0, got %.6f", sum)
	}
	if c.Portfolio.MaxPortfolioRiskPct <= 0 || c.Portfolio.MaxPortfolioRiskPct > 1 {
		return fmt.Errorf("max portfolio risk pct must be in (0, 1], got %.4f", c.Portfolio.MaxPortfolioRiskPct)
	}
	if c.Portfolio.MaxCorrelationExposure <= 0 || c.Portfolio.MaxCorrelationExposure > 1 {
		return fmt.Errorf("max correlation exposure must be in (0, 1], got %.4f", c.Portfolio.MaxCorrelationExposure)
	}
	if c.Monitor.MaxConsecutiveLossDays < 1 {
		return fmt.Errorf("max consecutive loss days must be at least 1, got %d", c.Monitor.MaxConsecutiveLossDays)
	}
	if c.Monitor.MaxDrawdownPct <= 0 || c.Monitor.MaxDrawdownPct > 1 {
		return fmt.Errorf("max drawdown pct must be in (0, 1], got %.4f", c.Monitor.MaxDrawdownPct)
	}
	for _, threshold := range c.Monitor.AlertThresholds {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("alert threshold must be in (0, 1], got %.4f", threshold)
		}
	}
	if c.Capital.WithdrawalPct < 0 || c.Capital.WithdrawalPct > 1 {
		return fmt.Errorf("withdrawal pct must be in [0, 1], got %.4f", c.Capital.WithdrawalPct)
	}
	if c.Capital.MinMonthsToAdd < 1 {
		return fmt.Errorf("min months for add must be at least 1, got %d", c.Capital.MinMonthsToAdd)
	}
	if c.Regime.ADXTrendThreshold <= c.Regime.ADXRangeThreshold {
		return fmt.Errorf("adx trend threshold %.1f must exceed range threshold %.1f",
			c.Regime.ADXTrendThreshold, c.Regime.ADXRangeThreshold)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
