package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/domain"
)

func syntheticSeries(n int) domain.MarketSeries {
	series := make(domain.MarketSeries, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100 + 10*math.Sin(float64(i)/5) + 0.1*float64(i)
		series[i] = domain.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Close:     price,
			Volume:    1000 + 50*math.Cos(float64(i)/7),
		}
	}
	return series
}

func TestTaskFeaturesDeterministic(t *testing.T) {
	extractor := NewExtractor()
	task := domain.Task{
		ID:     "task-1",
		Market: syntheticSeries(60),
		Performance: domain.PerformanceMetrics{
			SharpeRatio: 1.2, MaxDrawdown: 0.1, WinRate: 0.55, ProfitFactor: 1.4,
		},
		StrategyParams: domain.StrategyParams{
			RiskLevel: 0.5, PositionSize: 0.1, StopLoss: 0.05, TakeProfit: 0.1,
		},
	}

	first := extractor.TaskFeatures(task)
	second := extractor.TaskFeatures(task)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	for i, v := range first {
		assert.False(t, math.IsNaN(v), "feature %d is NaN", i)
		assert.False(t, math.IsInf(v, 0), "feature %d is Inf", i)
	}
}

func TestTaskFeaturesIncludePerformanceAndParams(t *testing.T) {
	extractor := NewExtractor()
	market := syntheticSeries(60)

	a := extractor.TaskFeatures(domain.Task{
		ID: "a", Market: market,
		Performance: domain.PerformanceMetrics{SharpeRatio: 2.0},
	})
	b := extractor.TaskFeatures(domain.Task{
		ID: "b", Market: market,
		Performance: domain.PerformanceMetrics{SharpeRatio: 0.1},
	})

	// Same market, different performance must yield different vectors.
	assert.NotEqual(t, a, b)
	assert.Equal(t, len(a), len(b))
}

func TestTaskFeaturesShortSeriesUsesNeutralDefaults(t *testing.T) {
	extractor := NewExtractor()
	task := domain.Task{ID: "short", Market: syntheticSeries(5)}

	vec := extractor.TaskFeatures(task)
	require.NotEmpty(t, vec)
	for i, v := range vec {
		assert.False(t, math.IsNaN(v), "feature %d is NaN", i)
	}
}

func TestPadToEqualLength(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2, 3, 4, 5}

	pa, pb := PadToEqualLength(a, b)
	assert.Len(t, pa, 5)
	assert.Len(t, pb, 5)
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, pa)
	assert.Equal(t, b, pb)
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{0.3, 0.7, 1.5}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}

func TestBuildDataset(t *testing.T) {
	series := syntheticSeries(120)

	ds, err := BuildDataset(series, 20)
	require.NoError(t, err)
	require.Greater(t, ds.Len(), 20)
	require.Equal(t, len(ds.X), len(ds.Y))
	assert.Len(t, ds.X[0], len(FeatureColumns))

	for i, row := range ds.X {
		for j, v := range row {
			assert.False(t, math.IsNaN(v), "row %d col %d is NaN", i, j)
		}
	}
}

func TestBuildDatasetZeroVolumeSeries(t *testing.T) {
	series := syntheticSeries(120)
	for i := range series {
		series[i].Volume = 0
	}

	// With no volume signal the volume ratio column falls back to neutral.
	ds, err := BuildDataset(series, 20)
	require.NoError(t, err)
	for _, row := range ds.X {
		assert.Equal(t, 1.0, row[len(FeatureColumns)-1])
	}
}

func TestBuildDatasetInsufficientRows(t *testing.T) {
	_, err := BuildDataset(syntheticSeries(10), 20)
	assert.Error(t, err)
}

func TestSplitHoldoutPreservesOrder(t *testing.T) {
	ds, err := BuildDataset(syntheticSeries(120), 20)
	require.NoError(t, err)

	train, holdout := ds.SplitHoldout(0.2)
	assert.Equal(t, ds.Len(), train.Len()+holdout.Len())
	assert.Greater(t, train.Len(), holdout.Len())
	// Holdout is the chronological tail, never a shuffle.
	assert.Equal(t, ds.Y[ds.Len()-1], holdout.Y[holdout.Len()-1])
	assert.Equal(t, ds.Y[0], train.Y[0])
}
