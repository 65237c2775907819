package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSINeutral is returned when there is not enough data for a meaningful RSI.
const RSINeutral = 50.0

// BollingerNeutral is the mid-band position returned when bands cannot be computed.
const BollingerNeutral = 0.5

// RSI calculates the latest Relative Strength Index value.
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns the neutral value 50 when there is insufficient data, so downstream
// feature vectors stay well-defined.
func RSI(closes []float64, length int) float64 {
	if len(closes) < length+1 {
		return RSINeutral
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) == 0 {
		return RSINeutral
	}

	last := rsi[len(rsi)-1]
	if isNaN(last) {
		return RSINeutral
	}
	return last
}

// RSISeries calculates the full RSI series. Leading values that talib cannot
// compute are NaN, matching talib's convention.
func RSISeries(closes []float64, length int) []float64 {
	if len(closes) < length+1 {
		return nil
	}
	return talib.Rsi(closes, length)
}

// BollingerPosition returns where the last close sits inside its Bollinger
// Bands: 0.0 at the lower band, 1.0 at the upper band. Returns the neutral
// mid-band position 0.5 when there is insufficient data or the bands collapse.
func BollingerPosition(closes []float64, length int, stdDevMultiplier float64) float64 {
	upper, lower, ok := BollingerBands(closes, length, stdDevMultiplier)
	if !ok {
		return BollingerNeutral
	}

	width := upper - lower
	if width == 0 {
		return BollingerNeutral
	}

	pos := (closes[len(closes)-1] - lower) / width
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}

// BollingerBands returns the latest upper and lower band values.
// MAType 0 = simple moving average.
func BollingerBands(closes []float64, length int, stdDevMultiplier float64) (upper, lower float64, ok bool) {
	if len(closes) < length {
		return 0, 0, false
	}

	u, _, l := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)
	if len(u) == 0 || isNaN(u[len(u)-1]) || isNaN(l[len(l)-1]) {
		return 0, 0, false
	}
	return u[len(u)-1], l[len(l)-1], true
}

// SMA calculates the simple moving average series for the given period.
func SMA(closes []float64, period int) []float64 {
	if len(closes) < period {
		return nil
	}
	return talib.Sma(closes, period)
}

func isNaN(f float64) bool {
	return f != f
}
