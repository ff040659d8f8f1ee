package portfolio

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/openfx-labs/riskguard/pkg/types"
)

const weightSumTolerance = 1e-9

// Config controls capital allocation and portfolio risk budgets.
type Config struct {
	TotalCapital           float64
	AllocationWeights      map[string]float64
	MaxPortfolioRiskPct    float64
	MaxCorrelationExposure float64
	// GBPCorrelationWeight is the fraction of a GBP position's value
	// counted toward EUR-correlated exposure. Heuristic constant, not
	// derived from market data.
	GBPCorrelationWeight float64
}

// Coordinator owns total capital, per-strategy allocations, admission
// control against risk and correlation budgets, the trade ledger, and
// aggregated portfolio metrics. All mutating operations are serialized
// through a single mutex so concurrent strategies never race on the
// shared capital and drawdown figures.
type Coordinator struct {
	mu sync.Mutex

	totalCapital   float64
	initialCapital float64
	peakCapital    float64

	maxPortfolioRiskPct    float64
	maxCorrelationExposure float64
	gbpCorrelationWeight   float64

	strategies    map[string]*Strategy
	openPositions map[string][]OpenPosition
	trades        []types.Trade
	metrics       Metrics
}

// NewCoordinator splits total capital across the named strategies by
// weight. Weights must sum to 1.0; anything else is a configuration
// error, not a runtime condition to recover from.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.TotalCapital <= 0 {
		return nil, fmt.Errorf("total capital must be positive, got %.2f", cfg.TotalCapital)
	}
	if len(cfg.AllocationWeights) == 0 {
		return nil, fmt.Errorf("no allocation weights configured")
	}

	sum := 0.0
	for _, w := range cfg.AllocationWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("allocation weights must sum to 1.0, got %.6f", sum)
	}

	c := &Coordinator{
		totalCapital:           cfg.TotalCapital,
		initialCapital:         cfg.TotalCapital,
		peakCapital:            cfg.TotalCapital,
		maxPortfolioRiskPct:    cfg.MaxPortfolioRiskPct,
		maxCorrelationExposure: cfg.MaxCorrelationExposure,
		gbpCorrelationWeight:   cfg.GBPCorrelationWeight,
		strategies:             make(map[string]*Strategy, len(cfg.AllocationWeights)),
		openPositions:          make(map[string][]OpenPosition),
	}

	for name, weight := range cfg.AllocationWeights {
		alloc := cfg.TotalCapital * weight
		c.strategies[name] = &Strategy{
			ID:               name,
			AllocatedCapital: alloc,
			CurrentBalance:   alloc,
			PeakBalance:      alloc,
			Active:           true,
		}
	}

	return c, nil
}

// GetStrategyAllocation returns the current balance for a strategy. An
// unknown name is a configuration error.
func (c *Coordinator) GetStrategyAllocation(name string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	strat, ok := c.strategies[name]
	if !ok {
		return 0, fmt.Errorf("unknown strategy: %s", name)
	}
	return strat.CurrentBalance, nil
}

// SetStrategyActive toggles a strategy's participation in admission.
func (c *Coordinator) SetStrategyActive(name string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	strat, ok := c.strategies[name]
	if !ok {
		return fmt.Errorf("unknown strategy: %s", name)
	}
	strat.Active = active
	return nil
}

// CheckPortfolioRisk sums risk across open positions and computes
// EUR-correlated exposure. GBP pairs contribute at the configured
// correlation weight.
func (c *Coordinator) CheckPortfolioRisk() RiskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.riskStatusLocked()
}

func (c *Coordinator) riskStatusLocked() RiskStatus {
	totalRisk := 0.0
	eurExposure := 0.0

	for _, positions := range c.openPositions {
		for _, pos := range positions {
			totalRisk += pos.RiskAmount

			pair := strings.ToUpper(pos.Pair)
			if strings.Contains(pair, "EUR") {
				eurExposure += pos.PositionValue
			}
			if strings.Contains(pair, "GBP") {
				eurExposure += pos.PositionValue * c.gbpCorrelationWeight
			}
		}
	}

	status := RiskStatus{TotalRiskAmount: totalRisk}
	if c.totalCapital > 0 {
		status.TotalRiskPct = totalRisk / c.totalCapital
		status.EURExposurePct = eurExposure / c.totalCapital
	}
	status.AllowNewTrades = status.TotalRiskPct < c.maxPortfolioRiskPct
	status.AllowEURTrades = status.EURExposurePct < c.maxCorrelationExposure
	return status
}

// CanOpenPosition decides whether a proposed position fits the risk and
// correlation budgets. A false result is a normal outcome, never an
// error.
func (c *Coordinator) CanOpenPosition(strategy, pair string, riskAmount float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	strat, ok := c.strategies[strategy]
	if !ok || !strat.Active {
		return false
	}

	status := c.riskStatusLocked()

	if c.totalCapital <= 0 {
		return false
	}
	if (status.TotalRiskAmount+riskAmount)/c.totalCapital > c.maxPortfolioRiskPct {
		return false
	}

	upper := strings.ToUpper(pair)
	if strings.Contains(upper, "EUR") || strings.Contains(upper, "GBP") {
		if !status.AllowEURTrades {
			return false
		}
	}

	return true
}

// RegisterPosition records an open position for risk accounting.
func (c *Coordinator) RegisterPosition(pos OpenPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openPositions[pos.Strategy] = append(c.openPositions[pos.Strategy], pos)
}

// ReleasePosition drops the first registered position for the strategy
// and pair, typically on trade closure.
func (c *Coordinator) ReleasePosition(strategy, pair string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	positions := c.openPositions[strategy]
	for i, pos := range positions {
		if pos.Pair == pair {
			c.openPositions[strategy] = append(positions[:i], positions[i+1:]...)
			return
		}
	}
}

// LogTrade records a completed trade against its strategy, appends it
// to the ledger, and recomputes aggregated metrics.
func (c *Coordinator) LogTrade(strategy string, trade types.Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	strat, ok := c.strategies[strategy]
	if !ok {
		return fmt.Errorf("unknown strategy: %s", strategy)
	}

	trade.StrategyID = strategy

	strat.TotalTrades++
	strat.Profit += trade.Profit
	strat.CurrentBalance += trade.Profit
	switch trade.Outcome {
	case types.OutcomeWin:
		strat.Wins++
	case types.OutcomeLoss:
		strat.Losses++
	}
	if strat.CurrentBalance > strat.PeakBalance {
		strat.PeakBalance = strat.CurrentBalance
	}
	strat.Drawdown = strat.PeakBalance - strat.CurrentBalance

	c.trades = append(c.trades, trade)

	c.totalCapital += trade.Profit
	if c.totalCapital > c.peakCapital {
		c.peakCapital = c.totalCapital
	}

	c.updateMetricsLocked()
	return nil
}

func (c *Coordinator) updateMetricsLocked() {
	if len(c.trades) == 0 {
		return
	}

	var totalProfit, grossProfit, grossLoss float64
	wins, losses := 0, 0
	for _, t := range c.trades {
		totalProfit += t.Profit
		if t.Profit > 0 {
			grossProfit += t.Profit
		} else if t.Profit < 0 {
			grossLoss += -t.Profit
		}
		switch t.Outcome {
		case types.OutcomeWin:
			wins++
		case types.OutcomeLoss:
			losses++
		}
	}

	total := len(c.trades)
	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	currentDrawdown := c.peakCapital - c.totalCapital
	maxDrawdown := math.Max(currentDrawdown, c.metrics.MaxDrawdown)

	c.metrics = Metrics{
		TotalTrades:     total,
		Wins:            wins,
		Losses:          losses,
		WinRate:         100 * float64(wins) / float64(total),
		TotalProfit:     totalProfit,
		CurrentBalance:  c.totalCapital,
		MaxDrawdown:     maxDrawdown,
		CurrentDrawdown: currentDrawdown,
		ProfitFactor:    profitFactor,
		ReturnPct:       100 * totalProfit / c.initialCapital,
	}
}

// TotalCapital returns the current portfolio balance.
func (c *Coordinator) TotalCapital() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCapital
}

// Metrics returns the aggregated portfolio metrics.
func (c *Coordinator) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Summary returns a full read-only snapshot of the portfolio.
func (c *Coordinator) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	strategies := make(map[string]Strategy, len(c.strategies))
	for name, strat := range c.strategies {
		strategies[name] = *strat
	}

	return Summary{
		TotalCapital:   c.totalCapital,
		InitialCapital: c.initialCapital,
		PeakCapital:    c.peakCapital,
		Metrics:        c.metrics,
		Strategies:     strategies,
		RiskStatus:     c.riskStatusLocked(),
	}
}

// Snapshot exports the coordinator state for persistence.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	strategies := make(map[string]*Strategy, len(c.strategies))
	for name, strat := range c.strategies {
		cp := *strat
		strategies[name] = &cp
	}
	positions := make(map[string][]OpenPosition, len(c.openPositions))
	for name, list := range c.openPositions {
		positions[name] = append([]OpenPosition(nil), list...)
	}

	return State{
		TotalCapital:   c.totalCapital,
		InitialCapital: c.initialCapital,
		PeakCapital:    c.peakCapital,
		Strategies:     strategies,
		OpenPositions:  positions,
		Trades:         append([]types.Trade(nil), c.trades...),
		Metrics:        c.metrics,
	}
}

// Restore replaces the coordinator state from a persisted snapshot.
func (c *Coordinator) Restore(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalCapital = state.TotalCapital
	c.initialCapital = state.InitialCapital
	c.peakCapital = state.PeakCapital
	c.strategies = state.Strategies
	if c.strategies == nil {
		c.strategies = make(map[string]*Strategy)
	}
	c.openPositions = state.OpenPositions
	if c.openPositions == nil {
		c.openPositions = make(map[string][]OpenPosition)
	}
	c.trades = state.Trades
	c.metrics = state.Metrics
}
