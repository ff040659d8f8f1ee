package regime

import (
	"time"

	"github.com/openfx-labs/riskguard/pkg/types"
)

// Regime classifies current market behavior.
type Regime int

const (
	RegimeUnknown Regime = iota
	RegimeTrending
	RegimeRanging
	RegimeChoppy
)

func (r Regime) String() string {
	switch r {
	case RegimeTrending:
		return "TRENDING"
	case RegimeRanging:
		return "RANGING"
	case RegimeChoppy:
		return "CHOPPY"
	default:
		return "UNKNOWN"
	}
}

// Sample is the per-bar classification output together with the
// indicator snapshot that produced it. Samples are derived lazily per
// bar and are rebuilt from scratch on reload, so they are never
// persisted long-term.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Regime    Regime    `json:"regime"`
	ADX       float64   `json:"adx"`
	ATR       float64   `json:"atr"`
	ATRPct    float64   `json:"atr_pct"`
}

// Stats is the distribution of regimes across classified bars.
type Stats struct {
	TotalBars   int     `json:"total_bars"`
	TrendingPct float64 `json:"trending_pct"`
	RangingPct  float64 `json:"ranging_pct"`
	ChoppyPct   float64 `json:"choppy_pct"`
	UnknownPct  float64 `json:"unknown_pct"`
}

// Candle aliases the shared OHLCV type for callers of this package.
type Candle = types.OHLCV
