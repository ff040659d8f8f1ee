package regime

import (
	"github.com/openfx-labs/riskguard/internal/indicators"
	"github.com/openfx-labs/riskguard/pkg/types"
)

const (
	// whipsawLookback is the number of preceding bars examined for
	// +DI/-DI crossovers.
	whipsawLookback = 5
	// whipsawFlips is the number of sign changes within the lookback
	// that forces a CHOPPY classification.
	whipsawFlips = 3
	// minVolatilityPct is the minimum ATR as percent of price for a
	// strong ADX reading to count as a tradeable trend.
	minVolatilityPct = 0.5
)

// Classifier classifies each incoming bar into a market regime using
// ADX for trend strength and ATR for volatility, and answers whether a
// given strategy type may trade in the current regime.
//
// State is per pair; no cross-pair synchronization is required.
type Classifier struct {
	trendThreshold float64
	rangeThreshold float64

	adx *indicators.ADX
	atr *indicators.ATR

	// diDiffs holds (+DI - -DI) for prior bars, newest last, used for
	// the whipsaw override.
	diDiffs []float64

	current Regime
	last    *Sample
	counts  map[Regime]int
	bars    int
}

// NewClassifier creates a classifier with the given ADX thresholds.
// Indicator periods follow the standard 14-bar convention.
func NewClassifier(trendThreshold, rangeThreshold float64) *Classifier {
	const period = 14
	return &Classifier{
		trendThreshold: trendThreshold,
		rangeThreshold: rangeThreshold,
		adx:            indicators.NewADX(period),
		atr:            indicators.NewATR(period),
		diDiffs:        make([]float64, 0, whipsawLookback+1),
		current:        RegimeUnknown,
		counts:         make(map[Regime]int),
	}
}

// Update feeds the next bar and returns its classification.
func (c *Classifier) Update(candle types.OHLCV) Sample {
	adxValue := c.adx.Update(candle)
	atrValue := c.atr.Update(candle)
	c.bars++

	atrPct := 0.0
	if candle.Close > 0 {
		atrPct = 100 * atrValue / candle.Close
	}

	regime := c.classify(adxValue, atrPct)

	plusDI, minusDI := c.adx.DirectionalIndex()
	c.diDiffs = append(c.diDiffs, plusDI-minusDI)
	if len(c.diDiffs) > whipsawLookback {
		c.diDiffs = c.diDiffs[1:]
	}

	c.current = regime
	c.counts[regime]++
	sample := Sample{
		Timestamp: candle.Timestamp,
		Regime:    regime,
		ADX:       adxValue,
		ATR:       atrValue,
		ATRPct:    atrPct,
	}
	c.last = &sample
	return sample
}

// classify applies the classification rules in priority order. The
// whipsaw override beats the threshold rules.
func (c *Classifier) classify(adxValue, atrPct float64) Regime {
	if !c.adx.Ready() {
		return RegimeUnknown
	}

	if c.isWhipsaw() {
		return RegimeChoppy
	}

	switch {
	case adxValue > c.trendThreshold && atrPct > minVolatilityPct:
		return RegimeTrending
	case adxValue > c.trendThreshold:
		// Strong directional reading but volatility too low to trust.
		return RegimeRanging
	case adxValue < c.rangeThreshold:
		return RegimeRanging
	default:
		return RegimeChoppy
	}
}

// isWhipsaw reports whether +DI/-DI crossed at least whipsawFlips times
// over the preceding whipsawLookback bars.
func (c *Classifier) isWhipsaw() bool {
	if len(c.diDiffs) < whipsawLookback {
		return false
	}
	window := c.diDiffs[len(c.diDiffs)-whipsawLookback:]
	flips := 0
	for i := 1; i < len(window); i++ {
		if sign(window[i]) != sign(window[i-1]) {
			flips++
		}
	}
	return flips >= whipsawFlips
}

// Current returns the regime of the most recent bar.
func (c *Classifier) Current() Regime {
	return c.current
}

// LastSample returns the most recent classification sample, or nil if
// no bar has been seen.
func (c *Classifier) LastSample() *Sample {
	return c.last
}

// TradingPermission reports whether the given strategy type may open
// positions in the current regime. Breakout and trend strategies need
// TRENDING, mean-reversion needs RANGING; anything else is allowed
// unless the market is CHOPPY. While the regime is UNKNOWN the
// equality checks fail, so breakout/trend/mean-reversion get no
// permission until indicators warm up. That behavior is deliberate.
func (c *Classifier) TradingPermission(strategyType types.StrategyType) bool {
	switch strategyType {
	case types.StrategyBreakout, types.StrategyTrend:
		return c.current == RegimeTrending
	case types.StrategyMeanReversion:
		return c.current == RegimeRanging
	default:
		return c.current != RegimeChoppy
	}
}

// Stats returns the regime distribution over all classified bars.
func (c *Classifier) Stats() Stats {
	s := Stats{TotalBars: c.bars}
	if c.bars == 0 {
		return s
	}
	total := float64(c.bars)
	s.TrendingPct = 100 * float64(c.counts[RegimeTrending]) / total
	s.RangingPct = 100 * float64(c.counts[RegimeRanging]) / total
	s.ChoppyPct = 100 * float64(c.counts[RegimeChoppy]) / total
	s.UnknownPct = 100 * float64(c.counts[RegimeUnknown]) / total
	return s
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
