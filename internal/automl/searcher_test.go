package automl

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
	"github.com/aristath/sentinel-brain/internal/work"
)

func syntheticSeries(n int) domain.MarketSeries {
	series := make(domain.MarketSeries, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = domain.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Close:     100 + 10*math.Sin(float64(i)/5) + 0.1*float64(i),
			Volume:    1000 + 50*math.Cos(float64(i)/7),
		}
	}
	return series
}

func newTestSearcher() *Searcher {
	pool := work.NewPool(4, time.Minute, zerolog.Nop())
	return NewSearcher(pool, zerolog.Nop())
}

func TestSearchModelsPicksBestCandidate(t *testing.T) {
	searcher := newTestSearcher()

	res := searcher.SearchModels(context.Background(), syntheticSeries(150))
	require.Equal(t, domain.StatusSuccess, res.Status)
	require.NotNil(t, res.BestModel)
	require.NotEmpty(t, res.BestName)
	require.Len(t, res.Results, 7)

	// The winner's mean CV score is at least as good as every evaluated
	// candidate's.
	for _, r := range res.Results {
		if r.Skipped || math.IsNaN(r.MeanScore) {
			continue
		}
		assert.GreaterOrEqual(t, res.BestScore, r.MeanScore, "candidate %s beat the winner", r.Name)
	}

	// The returned model is refitted on the full dataset and usable.
	preds, err := res.BestModel.Predict([][]float64{make([]float64, 8)})
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestSearchModelsInsufficientData(t *testing.T) {
	searcher := newTestSearcher()

	res := searcher.SearchModels(context.Background(), syntheticSeries(5))
	assert.Equal(t, domain.StatusInsufficientData, res.Status)
	assert.Nil(t, res.BestModel)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestSearchModelsReportsCVScores(t *testing.T) {
	searcher := newTestSearcher()

	res := searcher.SearchModels(context.Background(), syntheticSeries(150))
	require.Equal(t, domain.StatusSuccess, res.Status)
	assert.Len(t, res.BestCVScores, DefaultCVSplits)
}

func TestTimeSeriesSplitsAreOrdered(t *testing.T) {
	splits, err := TimeSeriesSplits(120, 5)
	require.NoError(t, err)
	require.Len(t, splits, 5)

	prevTestEnd := 0
	for i, s := range splits {
		// Training always precedes testing; no window looks into the past
		// of a previous test fold.
		assert.Greater(t, s.TrainEnd, 0, "fold %d", i)
		assert.Equal(t, s.TrainEnd, s.TestStart, "fold %d", i)
		assert.Greater(t, s.TestEnd, s.TestStart, "fold %d", i)
		assert.Greater(t, s.TestEnd, prevTestEnd, "fold %d", i)
		prevTestEnd = s.TestEnd
	}
	assert.LessOrEqual(t, splits[len(splits)-1].TestEnd, 120)
}

func TestBetterRanking(t *testing.T) {
	good := CandidateResult{Name: "a", MeanScore: -0.1, ScoreStd: 0.05}
	worse := CandidateResult{Name: "b", MeanScore: -0.5, ScoreStd: 0.01}
	tied := CandidateResult{Name: "c", MeanScore: -0.1, ScoreStd: 0.01}
	invalid := CandidateResult{Name: "d", MeanScore: math.NaN()}

	assert.True(t, better(good, worse))
	assert.False(t, better(worse, good))
	// Equal means break the tie on lower variance.
	assert.True(t, better(tied, good))
	// NaN always loses.
	assert.False(t, better(invalid, worse))
	assert.True(t, better(worse, invalid))
}

func TestBaseKind(t *testing.T) {
	assert.Equal(t, "ridge", BaseKind(estimator.NewPipeline(estimator.NewRidge(1.0))))
	assert.Equal(t, "ridge", BaseKind(&estimator.WeightedFeatures{
		Weights: []float64{1},
		Inner:   estimator.NewPipeline(estimator.NewRidge(1.0)),
	}))
	assert.Equal(t, "linear", BaseKind(estimator.NewLinear()))
}

func TestOptimizeHyperparametersTunesRidge(t *testing.T) {
	searcher := newTestSearcher()
	series := syntheticSeries(150)

	search := searcher.SearchModels(context.Background(), series)
	require.Equal(t, domain.StatusSuccess, search.Status)

	res := searcher.OptimizeHyperparameters(context.Background(), search.BestModel, series)
	require.Equal(t, domain.StatusSuccess, res.Status)
	require.NotNil(t, res.Model)

	preds, err := res.Model.Predict([][]float64{make([]float64, 8)})
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestOptimizeHyperparametersNoGridFamily(t *testing.T) {
	searcher := newTestSearcher()
	series := syntheticSeries(150)

	ds, err := features.BuildDataset(series, MinRows)
	require.NoError(t, err)
	model := estimator.NewPipeline(estimator.NewLinear())
	require.NoError(t, model.Fit(ds.X, ds.Y))

	// Plain linear regression has no tunable grid; the model comes back
	// unchanged with an explanatory note.
	res := searcher.OptimizeHyperparameters(context.Background(), model, series)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.NotEmpty(t, res.Note)
}

func TestSummaryTracksSearches(t *testing.T) {
	searcher := newTestSearcher()

	summary := searcher.Summary()
	assert.Equal(t, 7, summary["panel_size"])
	assert.Equal(t, 0, summary["searches_performed"])
	assert.NotContains(t, summary, "last_status")

	res := searcher.SearchModels(context.Background(), syntheticSeries(150))
	require.Equal(t, domain.StatusSuccess, res.Status)

	summary = searcher.Summary()
	assert.Equal(t, 1, summary["searches_performed"])
	assert.Equal(t, string(domain.StatusSuccess), summary["last_status"])
	assert.Equal(t, res.BestName, summary["last_best"])
}

func TestSearchModelsCancelledContext(t *testing.T) {
	searcher := newTestSearcher()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := searcher.SearchModels(ctx, syntheticSeries(150))
	assert.Equal(t, domain.StatusCandidateFailed, res.Status)
}
