package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/openfx-labs/riskguard/internal/capital"
	"github.com/openfx-labs/riskguard/internal/config"
	"github.com/openfx-labs/riskguard/internal/journal"
	"github.com/openfx-labs/riskguard/internal/logger"
	"github.com/openfx-labs/riskguard/internal/monitor"
	"github.com/openfx-labs/riskguard/internal/monitoring"
	"github.com/openfx-labs/riskguard/internal/notifications"
	"github.com/openfx-labs/riskguard/internal/portfolio"
	"github.com/openfx-labs/riskguard/internal/regime"
	"github.com/openfx-labs/riskguard/internal/sizing"
	"github.com/openfx-labs/riskguard/internal/state"
	"github.com/openfx-labs/riskguard/pkg/types"
)

// TradeIntent is a proposed entry from an external signal generator.
type TradeIntent struct {
	Strategy      string
	StrategyType  types.StrategyType
	Pair          string
	RiskAmount    float64
	PositionValue float64
}

// Decision is the outcome of the admission pipeline. A denial is a
// normal outcome; Reason explains which gate said no.
type Decision struct {
	Approved       bool
	Reason         string
	SizeMultiplier float64
}

// Plane is the single logical authority over portfolio, monitor, and
// capital state. Trade closures, day rollovers, and month rollovers
// all mutate shared capital figures, so every operation runs under one
// mutex: strategies report concurrently, the plane applies serially.
type Plane struct {
	mu sync.Mutex

	coordinator *portfolio.Coordinator
	killSwitch  *monitor.KillSwitch
	scaler      *capital.Scaler
	sizer       *sizing.Sizer
	classifiers map[string]*regime.Classifier

	regimeCfg config.RegimeConfig

	journal     *journal.SQLiteJournal
	log         *logger.Logger
	persistence *state.Persistence
	health      *monitoring.HealthChecker
	notifier    notifications.Notifier

	currentMonth time.Month
	currentYear  int

	// checkpointCh coalesces snapshot requests onto a single writer
	// goroutine; Checkpoint writes synchronously.
	checkpointCh chan struct{}
}

// Option configures optional plane collaborators.
type Option func(*Plane)

// WithJournal attaches a durable trade ledger.
func WithJournal(j *journal.SQLiteJournal) Option {
	return func(p *Plane) { p.journal = j }
}

// WithLogger attaches the session file logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Plane) { p.log = l }
}

// WithPersistence attaches snapshot checkpointing.
func WithPersistence(ps *state.Persistence) Option {
	return func(p *Plane) { p.persistence = ps }
}

// WithHealthChecker attaches health reporting.
func WithHealthChecker(h *monitoring.HealthChecker) Option {
	return func(p *Plane) { p.health = h }
}

// WithNotifier attaches external alert delivery.
func WithNotifier(n notifications.Notifier) Option {
	return func(p *Plane) { p.notifier = n }
}

// NewPlane wires the control plane from configuration.
func NewPlane(cfg *config.Config, opts ...Option) (*Plane, error) {
	coordinator, err := portfolio.NewCoordinator(portfolio.Config{
		TotalCapital:           cfg.Portfolio.TotalCapital,
		AllocationWeights:      cfg.Portfolio.AllocationWeights,
		MaxPortfolioRiskPct:    cfg.Portfolio.MaxPortfolioRiskPct,
		MaxCorrelationExposure: cfg.Portfolio.MaxCorrelationExposure,
		GBPCorrelationWeight:   cfg.Portfolio.GBPCorrelationWeight,
	})
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	p := &Plane{
		coordinator: coordinator,
		scaler: capital.NewScaler(capital.Config{
			InitialCapital: cfg.Portfolio.TotalCapital,
			WithdrawalPct:  cfg.Capital.WithdrawalPct,
			MinSharpeToAdd: cfg.Capital.MinSharpeToAdd,
			MinMonthsToAdd: cfg.Capital.MinMonthsToAdd,
		}),
		sizer:       sizing.NewSizer(),
		classifiers: make(map[string]*regime.Classifier),
		regimeCfg:   cfg.Regime,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.killSwitch = monitor.NewKillSwitch(monitor.Config{
		MaxConsecutiveLossDays: cfg.Monitor.MaxConsecutiveLossDays,
		MaxDrawdownPct:         cfg.Monitor.MaxDrawdownPct,
		MinSharpeRatio:         cfg.Monitor.MinSharpeRatio,
		MinWinRatePct:          cfg.Monitor.MinWinRatePct,
		AlertThresholds:        cfg.Monitor.AlertThresholds,
		DedupSharpeAlerts:      cfg.Monitor.DedupSharpeAlerts,
		DedupWinRateAlerts:     cfg.Monitor.DedupWinRateAlerts,
	}, alertFanout{p})

	if p.persistence != nil {
		p.checkpointCh = make(chan struct{}, 1)
		go p.checkpointLoop()
	}

	return p, nil
}

// alertFanout forwards monitor alerts to the log, the journal, the
// metrics counters, and external notifiers. Journal and notifier
// deliveries run on their own goroutine; trade processing never waits
// on them.
type alertFanout struct {
	p *Plane
}

func (f alertFanout) Notify(alert monitor.Alert) {
	monitoring.RecordAlert(string(alert.Level))

	if f.p.log != nil {
		f.p.log.Alert("[%s] %s (balance $%.2f)", alert.Level, alert.Message, alert.Balance)
	}
	go f.deliver(alert)
}

func (f alertFanout) deliver(alert monitor.Alert) {
	if f.p.journal != nil {
		if err := f.p.journal.RecordAlert(alert.Timestamp, string(alert.Level), alert.Message, alert.Balance); err != nil && f.p.log != nil {
			f.p.log.Error("journal alert write failed: %v", err)
		}
	}
	if f.p.notifier != nil {
		if err := f.p.notifier.SendAlert(string(alert.Level), alert.Message); err != nil && f.p.log != nil {
			f.p.log.Error("alert delivery failed: %v", err)
		}
	}
}

// OnCandle feeds a market bar into the pair's regime classifier.
func (p *Plane) OnCandle(pair string, candle types.OHLCV) regime.Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifierLocked(pair).Update(candle)
}

func (p *Plane) classifierLocked(pair string) *regime.Classifier {
	c, ok := p.classifiers[pair]
	if !ok {
		c = regime.NewClassifier(p.regimeCfg.ADXTrendThreshold, p.regimeCfg.ADXRangeThreshold)
		p.classifiers[pair] = c
	}
	return c
}

// Admit runs a trade intent through the admission pipeline: kill
// switch, regime permission, then risk and correlation budgets. The
// returned multiplier combines streak sizing with realized capital
// growth.
func (p *Plane) Admit(intent TradeIntent) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	decision := p.admitLocked(intent)

	verdict := "denied"
	if decision.Approved {
		verdict = "approved"
	}
	monitoring.RecordAdmission(intent.Strategy, verdict)
	if p.log != nil {
		p.log.Info("admission %s for %s %s: %s", verdict, intent.Strategy, intent.Pair, decision.Reason)
	}

	return decision
}

func (p *Plane) admitLocked(intent TradeIntent) Decision {
	if !p.killSwitch.TradingEnabled() {
		return Decision{Reason: "trading halted: " + p.killSwitch.ShutdownReason()}
	}

	if !p.classifierLocked(intent.Pair).TradingPermission(intent.StrategyType) {
		current := p.classifiers[intent.Pair].Current()
		return Decision{Reason: fmt.Sprintf("regime %s denies %s entries", current, intent.StrategyType)}
	}

	if !p.coordinator.CanOpenPosition(intent.Strategy, intent.Pair, intent.RiskAmount) {
		return Decision{Reason: "portfolio risk or correlation budget exceeded"}
	}

	multiplier := p.sizer.Multiplier(intent.Strategy) * p.scaler.PositionSizeMultiplier()

	p.coordinator.RegisterPosition(portfolio.OpenPosition{
		Strategy:      intent.Strategy,
		Pair:          intent.Pair,
		RiskAmount:    intent.RiskAmount,
		PositionValue: intent.PositionValue,
	})

	return Decision{Approved: true, Reason: "admitted", SizeMultiplier: multiplier}
}

// OnTradeClosed applies a trade-closure event to every interested
// component. Within one strategy, events must arrive in increasing
// exit-time order.
func (p *Plane) OnTradeClosed(trade types.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := trade.Validate(); err != nil {
		return err
	}

	p.rolloverMonthLocked(trade.ExitTime)

	p.coordinator.ReleasePosition(trade.StrategyID, trade.Pair)
	if err := p.coordinator.LogTrade(trade.StrategyID, trade); err != nil {
		return err
	}

	balance := p.coordinator.TotalCapital()
	p.killSwitch.UpdateTrade(trade, balance)
	p.sizer.RecordOutcome(trade.StrategyID, trade.IsWin())

	monitoring.RecordTrade(trade.StrategyID, string(trade.Outcome), trade.Profit)
	monitoring.UpdateCapital(balance)

	m := p.killSwitch.Metrics()
	monitoring.UpdateDrawdown(m.DrawdownPct)
	monitoring.UpdateSharpe(m.SharpeRatio)
	monitoring.SetTradingEnabled(m.TradingEnabled)

	if p.health != nil {
		p.health.UpdateTrade(trade.ExitTime)
		p.health.SetTradingState(m.TradingEnabled, m.ShutdownReason)
	}
	if p.log != nil {
		p.log.LogTradeClosure(trade.StrategyID, trade.Pair, string(trade.Side),
			trade.Profit, balance, string(trade.Outcome))
		if !m.TradingEnabled && m.ShutdownReason != "" {
			p.log.LogShutdown(m.ShutdownReason, balance)
		}
	}
	if p.journal != nil {
		go func(t types.Trade) {
			if err := p.journal.RecordTrade(t); err != nil && p.log != nil {
				p.log.Error("journal trade write failed: %v", err)
			}
		}(trade)
	}

	p.scheduleCheckpointLocked()
	return nil
}

// rolloverMonthLocked settles the previous month when a trade closes
// in a new calendar month. The balance handed to the scaler is the
// portfolio balance before the new month's first trade lands.
func (p *Plane) rolloverMonthLocked(exitTime time.Time) {
	year, month := exitTime.UTC().Year(), exitTime.UTC().Month()

	if p.currentYear == 0 {
		p.currentYear, p.currentMonth = year, month
		return
	}
	if year == p.currentYear && month == p.currentMonth {
		return
	}

	sharpe := p.killSwitch.Metrics().SharpeRatio
	result := p.scaler.UpdateMonthEnd(p.coordinator.TotalCapital(), sharpe, sharpe != 0)

	if p.log != nil {
		p.log.LogMonthEnd(result.Profit, result.Withdrawn, result.Reinvested, result.NewCapital)
	}

	p.currentYear, p.currentMonth = year, month
}

// scheduleCheckpointLocked requests an asynchronous snapshot write. A
// request already in flight covers this one; the worker always
// snapshots current state.
func (p *Plane) scheduleCheckpointLocked() {
	if p.checkpointCh == nil {
		return
	}
	select {
	case p.checkpointCh <- struct{}{}:
	default:
	}
}

func (p *Plane) checkpointLoop() {
	for range p.checkpointCh {
		if err := p.Checkpoint(); err != nil && p.log != nil {
			p.log.Error("state checkpoint failed: %v", err)
		}
	}
}

// Checkpoint writes the current snapshot synchronously. The snapshot
// is taken under the plane mutex; the file write happens outside it.
func (p *Plane) Checkpoint() error {
	if p.persistence == nil {
		return fmt.Errorf("no persistence configured")
	}

	p.mu.Lock()
	snap := state.SystemState{
		Portfolio: p.coordinator.Snapshot(),
		Monitor:   p.killSwitch.Snapshot(),
		Capital:   p.scaler.Snapshot(),
	}
	p.mu.Unlock()

	return p.persistence.Save(snap)
}

// Restore loads a persisted snapshot into the live components.
func (p *Plane) Restore() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.persistence == nil {
		return fmt.Errorf("no persistence configured")
	}

	snap, err := p.persistence.Load()
	if err != nil {
		return err
	}

	p.coordinator.Restore(snap.Portfolio)
	p.killSwitch.Restore(snap.Monitor)
	p.scaler.Restore(snap.Capital)

	if !snap.Monitor.CurrentDay.IsZero() {
		p.currentYear = snap.Monitor.CurrentDay.Year()
		p.currentMonth = snap.Monitor.CurrentDay.Month()
	}

	if p.log != nil {
		p.log.Info("state restored from snapshot taken %s", snap.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

// EnableManualOverride bypasses the automatic kill switches.
func (p *Plane) EnableManualOverride() {
	p.killSwitch.EnableManualOverride()
	if p.log != nil {
		p.log.Warning("manual override ENABLED, kill switches bypassed")
	}
}

// DisableManualOverride re-arms the automatic kill switches.
func (p *Plane) DisableManualOverride() {
	p.killSwitch.DisableManualOverride()
	if p.log != nil {
		p.log.Info("manual override DISABLED, kill switches active")
	}
}

// ForceResume restarts trading after a halt while override is active.
func (p *Plane) ForceResume() bool {
	resumed := p.killSwitch.ForceResume()
	if p.log != nil {
		if resumed {
			p.log.Warning("trading RESUMED under manual override")
		} else {
			p.log.Error("force resume rejected: manual override not active")
		}
	}
	if resumed {
		monitoring.SetTradingEnabled(true)
		if p.health != nil {
			p.health.SetTradingState(true, "")
		}
	}
	return resumed
}

// AddCapital requests a capital injection through the scaler's
// criteria gate.
func (p *Plane) AddCapital(amount float64) capital.AddCheck {
	p.mu.Lock()
	defer p.mu.Unlock()

	check := p.scaler.AddCapital(amount)
	if p.log != nil {
		verdict := "REJECTED"
		if check.Approved {
			verdict = "APPROVED"
		}
		p.log.Info("capital addition of $%.2f %s", amount, verdict)
		for _, reason := range check.Reasons {
			p.log.Info("  - %s", reason)
		}
	}
	return check
}

// PortfolioSummary returns the coordinator's read-only snapshot.
func (p *Plane) PortfolioSummary() portfolio.Summary {
	return p.coordinator.Summary()
}

// MonitorMetrics returns the kill switch's performance snapshot.
func (p *Plane) MonitorMetrics() monitor.Metrics {
	return p.killSwitch.Metrics()
}

// CapitalSummary returns the scaler's capital management snapshot.
func (p *Plane) CapitalSummary() capital.Summary {
	return p.scaler.Summary()
}

// RegimeStats returns per-pair regime distribution statistics.
func (p *Plane) RegimeStats() map[string]regime.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]regime.Stats, len(p.classifiers))
	for pair, c := range p.classifiers {
		stats[pair] = c.Stats()
	}
	return stats
}
