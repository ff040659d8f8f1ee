package indicators

import (
	"math"

	"github.com/openfx-labs/riskguard/pkg/types"
)

// ADX is a streaming Average Directional Index indicator.
// ADX measures trend strength regardless of direction (0-100 scale);
// the directional components +DI and -DI are exposed so callers can
// detect whipsaw conditions from their crossovers.
type ADX struct {
	period int
	alpha  float64

	trSmooth      float64
	plusDMSmooth  float64
	minusDMSmooth float64
	adxValue      float64

	plusDI  float64
	minusDI float64

	prevHigh    float64
	prevLow     float64
	prevClose   float64
	samples     int
	dxSamples   int
	initialized bool
}

// NewADX creates a new ADX indicator.
func NewADX(period int) *ADX {
	return &ADX{
		period: period,
		alpha:  1.0 / float64(period),
	}
}

// Update feeds the next bar and returns the current ADX value.
func (adx *ADX) Update(candle types.OHLCV) float64 {
	if !adx.initialized {
		adx.prevHigh = candle.High
		adx.prevLow = candle.Low
		adx.prevClose = candle.Close
		adx.initialized = true
		return 0
	}

	tr := trueRange(candle, adx.prevClose)

	// Directional movement: up and down moves clipped at zero,
	// tracked independently.
	plusDM := math.Max(candle.High-adx.prevHigh, 0)
	minusDM := math.Max(adx.prevLow-candle.Low, 0)

	if adx.samples == 0 {
		adx.trSmooth = tr
		adx.plusDMSmooth = plusDM
		adx.minusDMSmooth = minusDM
	} else {
		adx.trSmooth += adx.alpha * (tr - adx.trSmooth)
		adx.plusDMSmooth += adx.alpha * (plusDM - adx.plusDMSmooth)
		adx.minusDMSmooth += adx.alpha * (minusDM - adx.minusDMSmooth)
	}
	adx.samples++

	if adx.trSmooth > 0 {
		adx.plusDI = 100 * adx.plusDMSmooth / adx.trSmooth
		adx.minusDI = 100 * adx.minusDMSmooth / adx.trSmooth
	} else {
		adx.plusDI = 0
		adx.minusDI = 0
	}

	diSum := adx.plusDI + adx.minusDI
	dx := 0.0
	if diSum > 0 {
		dx = 100 * math.Abs(adx.plusDI-adx.minusDI) / diSum
	}

	if adx.dxSamples == 0 {
		adx.adxValue = dx
	} else {
		adx.adxValue += adx.alpha * (dx - adx.adxValue)
	}
	adx.dxSamples++

	adx.prevHigh = candle.High
	adx.prevLow = candle.Low
	adx.prevClose = candle.Close

	return adx.adxValue
}

// Ready reports whether enough bars have been seen for ADX to be valid.
func (adx *ADX) Ready() bool {
	return adx.samples >= adx.period
}

// Value returns the last computed ADX.
func (adx *ADX) Value() float64 {
	return adx.adxValue
}

// DirectionalIndex returns the current +DI and -DI values.
func (adx *ADX) DirectionalIndex() (plusDI, minusDI float64) {
	return adx.plusDI, adx.minusDI
}

// GetName returns the indicator name.
func (adx *ADX) GetName() string {
	return "ADX"
}

// ResetState resets internal state for new data periods.
func (adx *ADX) ResetState() {
	*adx = ADX{period: adx.period, alpha: adx.alpha}
}
