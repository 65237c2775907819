// Package features turns market/performance/strategy bundles into
// fixed-length numeric feature vectors for similarity comparison and
// model training.
package features

import (
	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/pkg/formulas"
)

// minWindow is the minimum number of observations required for the
// rolling-window statistics (volatility, trend, RSI, Bollinger position).
// Shorter series fall back to neutral defaults rather than failing, so
// similarity comparisons remain well-defined.
const minWindow = 20

// Extractor derives feature vectors from tasks and market series.
// All methods are pure functions with no side effects.
type Extractor struct{}

// NewExtractor creates a new feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// TaskFeatures extracts the fixed-order feature vector for a task:
// statistical and technical market features, then performance features,
// then strategy-parameter features. The same task always yields the
// same vector.
func (e *Extractor) TaskFeatures(task domain.Task) []float64 {
	vec := e.marketFeatures(task.Market)

	vec = append(vec,
		task.Performance.SharpeRatio,
		task.Performance.MaxDrawdown,
		task.Performance.WinRate,
		task.Performance.ProfitFactor,
	)

	vec = append(vec,
		task.StrategyParams.RiskLevel,
		task.StrategyParams.PositionSize,
		task.StrategyParams.StopLoss,
		task.StrategyParams.TakeProfit,
	)

	return vec
}

// DomainFeatures extracts the statistical/technical feature vector of a
// market series alone, used for domain-similarity comparison in transfer
// learning.
func (e *Extractor) DomainFeatures(series domain.MarketSeries) []float64 {
	return e.marketFeatures(series)
}

func (e *Extractor) marketFeatures(series domain.MarketSeries) []float64 {
	closes := series.Closes()
	returns := formulas.Returns(closes)

	meanReturn := formulas.Mean(returns)
	volatility := 0.0
	trend := 0.0
	rsi := formulas.RSINeutral
	bollinger := formulas.BollingerNeutral

	if len(closes) >= minWindow {
		volatility = formulas.StdDev(returns)
		trend = formulas.TrendStrength(closes)
		rsi = formulas.RSI(closes, 14)
		bollinger = formulas.BollingerPosition(closes, 20, 2.0)
	}

	volumes := series.Volumes()
	meanVolume := formulas.Mean(volumes)
	volumeStability := 0.0
	if meanVolume != 0 {
		volumeStability = formulas.StdDev(volumes) / meanVolume
	}

	return []float64{
		meanReturn,
		volatility,
		trend,
		rsi / 100.0, // scale into [0,1] like the other technicals
		bollinger,
		meanVolume,
		volumeStability,
	}
}
