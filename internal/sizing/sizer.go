package sizing

const (
	// streakWindow is the number of trailing trade outcomes kept per
	// strategy.
	streakWindow = 10
	// recoveryTrades is how many entries stay size-reduced after a
	// losing streak is detected.
	recoveryTrades = 5

	fullSize     = 1.0
	reducedSize  = 0.8
	recoverySize = 0.5
)

// Sizer scales entry sizes per strategy based on the recent win/loss
// streak. After two or more consecutive losses the strategy enters a
// sticky recovery mode: the next recoveryTrades entries are sized at
// recoverySize regardless of interim outcomes.
//
// Streak state is partitioned per strategy and needs no cross-strategy
// synchronization; callers serialize access per strategy.
type Sizer struct {
	strategies map[string]*streakState
}

type streakState struct {
	// outcomes holds the last streakWindow closed trades, newest last.
	// true = win.
	outcomes          []bool
	recoveryCountdown int
}

// NewSizer creates an empty position sizer.
func NewSizer() *Sizer {
	return &Sizer{strategies: make(map[string]*streakState)}
}

func (s *Sizer) state(strategyID string) *streakState {
	st, ok := s.strategies[strategyID]
	if !ok {
		st = &streakState{outcomes: make([]bool, 0, streakWindow)}
		s.strategies[strategyID] = st
	}
	return st
}

// RecordOutcome appends a closed trade's outcome to the strategy's
// trailing window. Called once per trade close, independent of sizing.
func (s *Sizer) RecordOutcome(strategyID string, win bool) {
	st := s.state(strategyID)
	st.outcomes = append(st.outcomes, win)
	if len(st.outcomes) > streakWindow {
		st.outcomes = st.outcomes[1:]
	}
}

// Multiplier returns the size multiplier for a new entry and advances
// the recovery countdown. Evaluated only when a position opens, never
// per market bar.
func (s *Sizer) Multiplier(strategyID string) float64 {
	st := s.state(strategyID)

	if st.recoveryCountdown > 0 {
		st.recoveryCountdown--
		return recoverySize
	}

	losses := 0
	for i := len(st.outcomes) - 1; i >= 0; i-- {
		if st.outcomes[i] {
			break
		}
		losses++
	}

	switch {
	case losses == 0:
		return fullSize
	case losses == 1:
		return reducedSize
	default:
		st.recoveryCountdown = recoveryTrades
		return recoverySize
	}
}

// RecoveryCountdown returns the remaining reduced-size entries for a
// strategy. Zero means normal sizing rules apply.
func (s *Sizer) RecoveryCountdown(strategyID string) int {
	return s.state(strategyID).recoveryCountdown
}
