package capital

import (
	"fmt"
	"sync"
	"time"
)

const (
	// monthlyWindow is the number of trailing months kept for returns
	// and Sharpe history.
	monthlyWindow = 12
	// drawdownFloor blocks capital additions while current capital
	// sits below this fraction of the peak.
	drawdownFloor = 0.95
)

// Config controls profit withdrawal and capital-add gating.
type Config struct {
	InitialCapital float64
	WithdrawalPct  float64
	MinSharpeToAdd float64
	MinMonthsToAdd int
}

// MonthEndResult reports what a month-end pass did with the profit.
type MonthEndResult struct {
	NewCapital float64 `json:"new_capital"`
	Profit     float64 `json:"profit"`
	ReturnPct  float64 `json:"return_pct"`
	Withdrawn  float64 `json:"withdrawn"`
	Reinvested float64 `json:"reinvested"`
}

// WithdrawalRecord is one month's profit split.
type WithdrawalRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Profit         float64   `json:"profit"`
	Withdrawn      float64   `json:"withdrawn"`
	Reinvested     float64   `json:"reinvested"`
	TotalWithdrawn float64   `json:"total_withdrawn"`
}

// AddCheck is the verdict of the capital-add criteria with an itemized
// reason per check.
type AddCheck struct {
	Approved bool     `json:"approved"`
	Reasons  []string `json:"reasons"`
}

// Summary is the read-only capital management snapshot.
type Summary struct {
	InitialCapital         float64 `json:"initial_capital"`
	CurrentCapital         float64 `json:"current_capital"`
	PeakCapital            float64 `json:"peak_capital"`
	TotalWithdrawn         float64 `json:"total_withdrawn"`
	TotalAdded             float64 `json:"total_added"`
	TotalValue             float64 `json:"total_value"`
	CapitalROIPct          float64 `json:"capital_roi_pct"`
	TotalValueROIPct       float64 `json:"total_value_roi_pct"`
	PositionSizeMultiplier float64 `json:"position_size_multiplier"`
	MonthsTracked          int     `json:"months_tracked"`
}

// State is the persistable portion of the scaler.
type State struct {
	InitialCapital    float64            `json:"initial_capital"`
	CurrentCapital    float64            `json:"current_capital"`
	PeakCapital       float64            `json:"peak_capital"`
	TotalWithdrawn    float64            `json:"total_withdrawn"`
	TotalAdded        float64            `json:"total_added"`
	MonthlyReturns    []float64          `json:"monthly_returns"`
	MonthlySharpe     []float64          `json:"monthly_sharpe"`
	WithdrawalHistory []WithdrawalRecord `json:"withdrawal_history"`
	LastUpdate        time.Time          `json:"last_update"`
}

// Scaler manages month-end profit withdrawal, compounding, and the
// criteria gate for adding fresh capital. Position sizes scale with
// realized post-withdrawal capital growth, not gross trading profit.
type Scaler struct {
	mu sync.Mutex

	cfg Config

	currentCapital float64
	peakCapital    float64
	totalWithdrawn float64
	totalAdded     float64

	monthlyReturns    []float64
	monthlySharpe     []float64
	withdrawalHistory []WithdrawalRecord

	now func() time.Time
}

// NewScaler creates a scaler starting at the configured capital.
func NewScaler(cfg Config) *Scaler {
	return &Scaler{
		cfg:            cfg,
		currentCapital: cfg.InitialCapital,
		peakCapital:    cfg.InitialCapital,
		now:            time.Now,
	}
}

func pushWindow(window []float64, v float64) []float64 {
	window = append(window, v)
	if len(window) > monthlyWindow {
		window = window[1:]
	}
	return window
}

// UpdateMonthEnd settles the month against the current balance.
// Profitable months split the profit between withdrawal and
// reinvestment; losing months absorb the loss into capital with no
// withdrawal. monthSharpe is optional; pass hasSharpe=false when no
// figure is available for the month.
func (s *Scaler) UpdateMonthEnd(currentBalance float64, monthSharpe float64, hasSharpe bool) MonthEndResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	profit := currentBalance - s.currentCapital
	returnPct := 0.0
	if s.currentCapital > 0 {
		returnPct = 100 * profit / s.currentCapital
	}

	s.monthlyReturns = pushWindow(s.monthlyReturns, returnPct)
	if hasSharpe {
		s.monthlySharpe = pushWindow(s.monthlySharpe, monthSharpe)
	}

	result := MonthEndResult{Profit: profit, ReturnPct: returnPct}

	switch {
	case profit > 0:
		withdrawn := profit * s.cfg.WithdrawalPct
		reinvested := profit - withdrawn

		s.totalWithdrawn += withdrawn
		s.currentCapital += reinvested
		s.withdrawalHistory = append(s.withdrawalHistory, WithdrawalRecord{
			Timestamp:      s.now().UTC(),
			Profit:         profit,
			Withdrawn:      withdrawn,
			Reinvested:     reinvested,
			TotalWithdrawn: s.totalWithdrawn,
		})

		result.Withdrawn = withdrawn
		result.Reinvested = reinvested
	case profit < 0:
		s.currentCapital = currentBalance
	}

	if s.currentCapital > s.peakCapital {
		s.peakCapital = s.currentCapital
	}

	result.NewCapital = s.currentCapital
	return result
}

// CheckCapitalAddCriteria evaluates every capital-add check and
// returns the verdict with one reason per check.
func (s *Scaler) CheckCapitalAddCriteria() AddCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAddLocked()
}

func (s *Scaler) checkAddLocked() AddCheck {
	check := AddCheck{Approved: true}
	months := s.cfg.MinMonthsToAdd

	if len(s.monthlySharpe) < months {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("Need %d months of performance (have %d)", months, len(s.monthlySharpe)))
		check.Approved = false
	} else {
		recent := s.monthlySharpe[len(s.monthlySharpe)-months:]
		sum := 0.0
		for _, v := range recent {
			sum += v
		}
		avg := sum / float64(months)
		if avg < s.cfg.MinSharpeToAdd {
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("Sharpe ratio %.2f below %.2f", avg, s.cfg.MinSharpeToAdd))
			check.Approved = false
		} else {
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("Sharpe ratio %.2f meets threshold", avg))
		}
	}

	if len(s.monthlyReturns) >= months {
		recent := s.monthlyReturns[len(s.monthlyReturns)-months:]
		losing := 0
		for _, r := range recent {
			if r < 0 {
				losing++
			}
		}
		if losing > 1 {
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("%d losing months in last %d months", losing, months))
			check.Approved = false
		} else {
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("Consistent profitability (%d/%d winning months)", months-losing, months))
		}
	}

	if s.currentCapital < s.peakCapital*drawdownFloor {
		ddPct := 100 * (s.peakCapital - s.currentCapital) / s.peakCapital
		check.Reasons = append(check.Reasons, fmt.Sprintf("In drawdown: %.1f%%", ddPct))
		check.Approved = false
	} else {
		check.Reasons = append(check.Reasons, "Not in significant drawdown")
	}

	return check
}

// AddCapital injects fresh capital if the criteria pass. On rejection
// nothing changes and the reasons explain each failed check.
func (s *Scaler) AddCapital(amount float64) AddCheck {
	s.mu.Lock()
	defer s.mu.Unlock()

	check := s.checkAddLocked()
	if !check.Approved {
		return check
	}

	s.currentCapital += amount
	s.totalAdded += amount
	if s.currentCapital > s.peakCapital {
		s.peakCapital = s.currentCapital
	}
	return check
}

// PositionSizeMultiplier scales strategy position sizes with realized
// capital growth.
func (s *Scaler) PositionSizeMultiplier() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.multiplierLocked()
}

func (s *Scaler) multiplierLocked() float64 {
	if s.cfg.InitialCapital <= 0 {
		return 1.0
	}
	return s.currentCapital / s.cfg.InitialCapital
}

// CurrentCapital returns the realized trading capital.
func (s *Scaler) CurrentCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCapital
}

// WithdrawalHistory returns a copy of all withdrawal records.
func (s *Scaler) WithdrawalHistory() []WithdrawalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WithdrawalRecord(nil), s.withdrawalHistory...)
}

// Summary returns the capital management snapshot, including total
// value across withdrawn profits.
func (s *Scaler) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalValue := s.currentCapital + s.totalWithdrawn
	sum := Summary{
		InitialCapital:         s.cfg.InitialCapital,
		CurrentCapital:         s.currentCapital,
		PeakCapital:            s.peakCapital,
		TotalWithdrawn:         s.totalWithdrawn,
		TotalAdded:             s.totalAdded,
		TotalValue:             totalValue,
		PositionSizeMultiplier: s.multiplierLocked(),
		MonthsTracked:          len(s.monthlyReturns),
	}
	if s.cfg.InitialCapital > 0 {
		sum.CapitalROIPct = 100 * (s.currentCapital - s.cfg.InitialCapital) / s.cfg.InitialCapital
		sum.TotalValueROIPct = 100 * (totalValue - s.cfg.InitialCapital) / s.cfg.InitialCapital
	}
	return sum
}

// Snapshot exports the scaler state for persistence.
func (s *Scaler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		InitialCapital:    s.cfg.InitialCapital,
		CurrentCapital:    s.currentCapital,
		PeakCapital:       s.peakCapital,
		TotalWithdrawn:    s.totalWithdrawn,
		TotalAdded:        s.totalAdded,
		MonthlyReturns:    append([]float64(nil), s.monthlyReturns...),
		MonthlySharpe:     append([]float64(nil), s.monthlySharpe...),
		WithdrawalHistory: append([]WithdrawalRecord(nil), s.withdrawalHistory...),
		LastUpdate:        s.now().UTC(),
	}
}

// Restore replaces the scaler state from a persisted snapshot.
func (s *Scaler) Restore(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.InitialCapital = state.InitialCapital
	s.currentCapital = state.CurrentCapital
	s.peakCapital = state.PeakCapital
	s.totalWithdrawn = state.TotalWithdrawn
	s.totalAdded = state.TotalAdded
	s.monthlyReturns = append([]float64(nil), state.MonthlyReturns...)
	s.monthlySharpe = append([]float64(nil), state.MonthlySharpe...)
	s.withdrawalHistory = append([]WithdrawalRecord(nil), state.WithdrawalHistory...)
}
