package automl

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
	"github.com/aristath/sentinel-brain/internal/work"
	"github.com/aristath/sentinel-brain/pkg/formulas"
)

// gridPoint is one hyperparameter combination for a model family.
type gridPoint struct {
	params map[string]any
	build  func() estimator.Estimator
}

// grids returns the registered parameter space per model family. Families
// without an entry are returned unmodified by OptimizeHyperparameters.
func grids() map[string][]gridPoint {
	g := map[string][]gridPoint{}

	for _, alpha := range []float64{0.1, 1.0, 10.0} {
		alpha := alpha
		g["ridge"] = append(g["ridge"], gridPoint{
			params: map[string]any{"alpha": alpha},
			build:  func() estimator.Estimator { return estimator.NewRidge(alpha) },
		})
	}

	for _, alpha := range []float64{0.0001, 0.001, 0.01} {
		alpha := alpha
		g["lasso"] = append(g["lasso"], gridPoint{
			params: map[string]any{"alpha": alpha},
			build:  func() estimator.Estimator { return estimator.NewLasso(alpha) },
		})
	}

	for _, n := range []int{50, 100} {
		for _, depth := range []int{4, 6} {
			n, depth := n, depth
			g["random_forest"] = append(g["random_forest"], gridPoint{
				params: map[string]any{"n_estimators": n, "max_depth": depth},
				build:  func() estimator.Estimator { return estimator.NewRandomForest(n, depth) },
			})
		}
	}

	for _, n := range []int{50, 100} {
		for _, lr := range []float64{0.05, 0.1} {
			n, lr := n, lr
			g["gradient_boosting"] = append(g["gradient_boosting"], gridPoint{
				params: map[string]any{"n_estimators": n, "learning_rate": lr},
				build:  func() estimator.Estimator { return estimator.NewGradientBoosting(n, lr, 3) },
			})
		}
	}

	for _, c := range []float64{0.1, 1.0, 10.0} {
		for _, eps := range []float64{0.01, 0.1} {
			c, eps := c, eps
			g["svr"] = append(g["svr"], gridPoint{
				params: map[string]any{"c": c, "epsilon": eps},
				build:  func() estimator.Estimator { return estimator.NewSVR(c, eps) },
			})
		}
	}

	for _, hidden := range [][]int{{32}, {32, 16}, {64, 32}} {
		hidden := hidden
		g["mlp"] = append(g["mlp"], gridPoint{
			params: map[string]any{"hidden_sizes": hidden},
			build:  func() estimator.Estimator { return estimator.NewMLP(hidden, estimator.ActivationReLU, 0.001) },
		})
	}

	return g
}

// OptimizeResult is the outcome of a hyperparameter search.
type OptimizeResult struct {
	Status     domain.Status
	Model      estimator.Estimator
	BestParams map[string]any
	BestScore  float64
	Note       string
}

// OptimizeHyperparameters grid-searches the parameter space registered for
// the model's family using the same time-ordered CV splitter. Families with
// no registered grid return the model unmodified with an explanatory note.
func (s *Searcher) OptimizeHyperparameters(ctx context.Context, model estimator.Estimator, series domain.MarketSeries) OptimizeResult {
	kind := BaseKind(model)
	points, ok := grids()[kind]
	if !ok {
		return OptimizeResult{
			Status: domain.StatusSuccess,
			Model:  model,
			Note:   fmt.Sprintf("no hyperparameter grid registered for %q, model returned unmodified", kind),
		}
	}

	ds, err := features.BuildDataset(series, MinRows)
	if err != nil {
		return OptimizeResult{Status: domain.StatusInsufficientData, Note: err.Error()}
	}

	tasks := make([]work.Task[float64], len(points))
	for i, pt := range points {
		pt := pt
		build := func() estimator.Estimator { return estimator.NewPipeline(pt.build()) }
		tasks[i] = func(taskCtx context.Context) (float64, error) {
			cv, err := crossValidate(taskCtx, build, ds, DefaultCVSplits)
			if err != nil {
				return 0, err
			}
			return formulas.Mean(cv), nil
		}
	}

	scores, errs := work.Run(ctx, s.pool, tasks)
	bestIdx := -1
	for i := range points {
		if errs[i] != nil {
			s.log.Warn().Err(errs[i]).Str("family", kind).Interface("params", points[i].params).Msg("Grid point skipped")
			continue
		}
		if bestIdx < 0 || scores[i] > scores[bestIdx] {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return OptimizeResult{
			Status: domain.StatusCandidateFailed,
			Model:  model,
			Note:   "all grid points failed evaluation, model returned unmodified",
		}
	}

	tuned := estimator.NewPipeline(points[bestIdx].build())
	if err := tuned.Fit(ds.X, ds.Y); err != nil {
		return OptimizeResult{Status: domain.StatusCandidateFailed, Model: model, Note: err.Error()}
	}

	s.log.Info().
		Str("family", kind).
		Interface("params", points[bestIdx].params).
		Float64("score", scores[bestIdx]).
		Msg("Hyperparameter search complete")

	return OptimizeResult{
		Status:     domain.StatusSuccess,
		Model:      tuned,
		BestParams: points[bestIdx].params,
		BestScore:  scores[bestIdx],
	}
}
