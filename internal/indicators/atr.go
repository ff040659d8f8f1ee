package indicators

import (
	"math"

	"github.com/openfx-labs/riskguard/pkg/types"
)

// ATR is a streaming Average True Range indicator using Wilder's
// smoothing. It is fed one bar at a time and keeps no history beyond
// the running smoothed value.
type ATR struct {
	period      int
	alpha       float64
	value       float64
	prevClose   float64
	samples     int
	initialized bool
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		alpha:  1.0 / float64(period),
	}
}

// Update feeds the next bar and returns the current ATR value.
func (a *ATR) Update(candle types.OHLCV) float64 {
	tr := candle.High - candle.Low
	if a.initialized {
		tr = trueRange(candle, a.prevClose)
	}

	if a.samples == 0 {
		a.value = tr
	} else {
		a.value += a.alpha * (tr - a.value)
	}

	a.prevClose = candle.Close
	a.initialized = true
	a.samples++
	return a.value
}

// Ready reports whether enough bars have been seen for the smoothed
// value to be trustworthy.
func (a *ATR) Ready() bool {
	return a.samples >= a.period
}

// Value returns the last computed ATR.
func (a *ATR) Value() float64 {
	return a.value
}

// GetName returns the indicator name.
func (a *ATR) GetName() string {
	return "ATR"
}

// ResetState resets internal state for new data periods.
func (a *ATR) ResetState() {
	a.value = 0
	a.prevClose = 0
	a.samples = 0
	a.initialized = false
}

// trueRange computes max(High-Low, |High-PrevClose|, |Low-PrevClose|).
func trueRange(current types.OHLCV, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
