package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 3.0, Mean(values), 1e-9)
	assert.InDelta(t, 1.5811, StdDev(values), 1e-3)
}

func TestReturns(t *testing.T) {
	prices := []float64{100, 110, 99}

	returns := Returns(prices)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestReturnsTooShort(t *testing.T) {
	assert.Empty(t, Returns([]float64{100}))
	assert.Empty(t, Returns(nil))
}

func TestTrendStrengthDirection(t *testing.T) {
	up := []float64{100, 101, 102, 103, 104, 105}
	down := []float64{105, 104, 103, 102, 101, 100}
	flat := []float64{100, 100, 100, 100, 100, 100}

	assert.Greater(t, TrendStrength(up), 0.0)
	assert.Less(t, TrendStrength(down), 0.0)
	assert.InDelta(t, 0.0, TrendStrength(flat), 1e-9)
}

func TestSharpeRatio(t *testing.T) {
	// Constant positive returns have zero volatility, sharpe is zero by
	// convention rather than infinite.
	constant := []float64{0.01, 0.01, 0.01, 0.01}
	assert.Equal(t, 0.0, SharpeRatio(constant, 0, 252))

	mixed := []float64{0.02, -0.01, 0.03, -0.005, 0.015}
	sharpe := SharpeRatio(mixed, 0, 252)
	assert.Greater(t, sharpe, 0.0)
	assert.False(t, math.IsNaN(sharpe))
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120 to trough 90 is a 25% drawdown.
	equity := []float64{100, 120, 90, 110}
	assert.InDelta(t, 0.25, MaxDrawdown(equity), 1e-9)
}

func TestMaxDrawdownMonotonicRise(t *testing.T) {
	equity := []float64{100, 110, 120, 130}
	assert.Equal(t, 0.0, MaxDrawdown(equity))
}

func TestRSINeutralOnShortSeries(t *testing.T) {
	short := []float64{100, 101, 102}
	assert.Equal(t, RSINeutral, RSI(short, 14))
}

func TestRSIRangeOnLongSeries(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 100 + 3*math.Sin(float64(i)/4)
	}

	rsi := RSI(prices, 14)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestBollingerPositionBounds(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/3)
	}

	pos := BollingerPosition(prices, 20, 2.0)
	assert.GreaterOrEqual(t, pos, 0.0)
	assert.LessOrEqual(t, pos, 1.0)
}

func TestBollingerPositionNeutralOnFlatSeries(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}

	// Band collapse on constant prices falls back to the neutral midpoint.
	assert.Equal(t, BollingerNeutral, BollingerPosition(flat, 20, 2.0))
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02}

	vol := AnnualizedVolatility(returns)
	assert.InDelta(t, StdDev(returns)*math.Sqrt(252), vol, 1e-9)
}
