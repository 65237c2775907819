package automl

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
)

// Split is one time-ordered cross-validation fold: train on [0, TrainEnd),
// test on [TestStart, TestEnd). Training data never postdates test data.
type Split struct {
	TrainEnd  int
	TestStart int
	TestEnd   int
}

// TimeSeriesSplits builds expanding-window folds over n time-ordered rows.
// Each fold tests on the next n/(nSplits+1) rows after its training window;
// no shuffling ever happens.
func TimeSeriesSplits(n, nSplits int) ([]Split, error) {
	if nSplits < 2 {
		nSplits = 2
	}
	foldSize := n / (nSplits + 1)
	if foldSize < 1 {
		return nil, fmt.Errorf("%d rows is too few for %d time-ordered folds", n, nSplits)
	}

	splits := make([]Split, 0, nSplits)
	for k := 1; k <= nSplits; k++ {
		trainEnd := foldSize * k
		testEnd := trainEnd + foldSize
		if k == nSplits {
			testEnd = n
		}
		splits = append(splits, Split{TrainEnd: trainEnd, TestStart: trainEnd, TestEnd: testEnd})
	}
	return splits, nil
}

// crossValidate scores an estimator builder over time-ordered folds with
// negative MSE. Cancellation is checked between folds.
func crossValidate(ctx context.Context, build func() estimator.Estimator, ds *features.Dataset, nSplits int) ([]float64, error) {
	splits, err := TimeSeriesSplits(ds.Len(), nSplits)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(splits))
	for _, split := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		model := build()
		if err := model.Fit(ds.X[:split.TrainEnd], ds.Y[:split.TrainEnd]); err != nil {
			return nil, fmt.Errorf("fold fit: %w", err)
		}
		preds, err := model.Predict(ds.X[split.TestStart:split.TestEnd])
		if err != nil {
			return nil, fmt.Errorf("fold predict: %w", err)
		}

		m := estimator.Evaluate(preds, ds.Y[split.TestStart:split.TestEnd])
		scores = append(scores, -m.MSE)
	}
	return scores, nil
}

// holdoutMetrics fits on everything before the final fold and evaluates on
// the final fold, giving every strategy a comparable out-of-sample R².
func holdoutMetrics(build func() estimator.Estimator, ds *features.Dataset, nSplits int) (estimator.Metrics, error) {
	splits, err := TimeSeriesSplits(ds.Len(), nSplits)
	if err != nil {
		return estimator.Metrics{}, err
	}
	last := splits[len(splits)-1]

	model := build()
	if err := model.Fit(ds.X[:last.TrainEnd], ds.Y[:last.TrainEnd]); err != nil {
		return estimator.Metrics{}, err
	}
	preds, err := model.Predict(ds.X[last.TestStart:last.TestEnd])
	if err != nil {
		return estimator.Metrics{}, err
	}
	return estimator.Evaluate(preds, ds.Y[last.TestStart:last.TestEnd]), nil
}
