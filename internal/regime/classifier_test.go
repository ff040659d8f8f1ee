package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfx-labs/riskguard/pkg/types"
)

func newTestClassifier() *Classifier {
	return NewClassifier(25, 20)
}

// trendingCandles produces a steady climb with bar ranges wide enough
// to clear the volatility floor.
func trendingCandles(bars int) []types.OHLCV {
	out := make([]types.OHLCV, 0, bars)
	price := 1.0000
	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		open := price
		price *= 1.01
		out = append(out, types.OHLCV{
			Open:      open,
			High:      price * 1.005,
			Low:       open * 0.995,
			Close:     price,
			Volume:    1000,
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

// quietTrendCandles produce a directional drift with ranges far too
// narrow for the volatility floor.
func quietTrendCandles(bars int) []types.OHLCV {
	out := make([]types.OHLCV, 0, bars)
	price := 100.0
	for i := 0; i < bars; i++ {
		open := price
		price += 0.01
		out = append(out, types.OHLCV{
			Open:  open,
			High:  price + 0.002,
			Low:   open - 0.002,
			Close: price,
		})
	}
	return out
}

// whipsawCandles alternate directional thrusts so +DI/-DI cross every
// bar.
func whipsawCandles(bars int) []types.OHLCV {
	out := make([]types.OHLCV, 0, bars)
	for i := 0; i < bars; i++ {
		if i%2 == 0 {
			out = append(out, types.OHLCV{Open: 100, High: 102.5, Low: 99.8, Close: 102})
		} else {
			out = append(out, types.OHLCV{Open: 102, High: 102.2, Low: 99.5, Close: 100})
		}
	}
	return out
}

func feed(c *Classifier, candles []types.OHLCV) Sample {
	var s Sample
	for _, candle := range candles {
		s = c.Update(candle)
	}
	return s
}

func TestClassifier_UnknownDuringWarmup(t *testing.T) {
	c := newTestClassifier()

	for i, candle := range trendingCandles(14) {
		s := c.Update(candle)
		assert.Equal(t, RegimeUnknown, s.Regime, "bar %d", i)
	}
}

func TestClassifier_TrendingMarket(t *testing.T) {
	c := newTestClassifier()

	s := feed(c, trendingCandles(40))

	assert.Equal(t, RegimeTrending, s.Regime)
	assert.Greater(t, s.ADX, 25.0)
	assert.Greater(t, s.ATRPct, 0.5)
}

func TestClassifier_QuietTrendIsRanging(t *testing.T) {
	c := newTestClassifier()

	s := feed(c, quietTrendCandles(40))

	// Strong directional reading, but volatility below the floor.
	assert.Greater(t, s.ADX, 25.0)
	assert.Less(t, s.ATRPct, 0.5)
	assert.Equal(t, RegimeRanging, s.Regime)
}

func TestClassifier_WhipsawIsChoppy(t *testing.T) {
	c := newTestClassifier()

	// The DI smoothing needs dozens of bars before the alternating
	// thrusts show up as sign flips.
	s := feed(c, whipsawCandles(100))

	assert.Equal(t, RegimeChoppy, s.Regime)
}

func TestClassifier_TradingPermission(t *testing.T) {
	c := newTestClassifier()

	// UNKNOWN: directional strategies are denied, others pass.
	assert.False(t, c.TradingPermission(types.StrategyBreakout))
	assert.False(t, c.TradingPermission(types.StrategyTrend))
	assert.False(t, c.TradingPermission(types.StrategyMeanReversion))
	assert.True(t, c.TradingPermission("arbitrage"))

	feed(c, trendingCandles(40))
	require.Equal(t, RegimeTrending, c.Current())

	assert.True(t, c.TradingPermission(types.StrategyBreakout))
	assert.True(t, c.TradingPermission(types.StrategyTrend))
	assert.False(t, c.TradingPermission(types.StrategyMeanReversion))
	assert.True(t, c.TradingPermission("arbitrage"))
}

func TestClassifier_ChoppyDeniesEverything(t *testing.T) {
	c := newTestClassifier()
	feed(c, whipsawCandles(100))
	require.Equal(t, RegimeChoppy, c.Current())

	assert.False(t, c.TradingPermission(types.StrategyBreakout))
	assert.False(t, c.TradingPermission(types.StrategyMeanReversion))
	assert.False(t, c.TradingPermission("arbitrage"))
}

func TestClassifier_StatsSumToFull(t *testing.T) {
	c := newTestClassifier()
	feed(c, trendingCandles(40))

	stats := c.Stats()
	assert.Equal(t, 40, stats.TotalBars)
	assert.InDelta(t, 100.0,
		stats.TrendingPct+stats.RangingPct+stats.ChoppyPct+stats.UnknownPct, 1e-9)
	assert.Greater(t, stats.TrendingPct, 0.0)
	assert.Greater(t, stats.UnknownPct, 0.0)
}

func TestClassifier_LastSample(t *testing.T) {
	c := newTestClassifier()
	assert.Nil(t, c.LastSample())

	feed(c, trendingCandles(20))
	s := c.LastSample()
	require.NotNil(t, s)
	assert.Equal(t, c.Current(), s.Regime)
}
