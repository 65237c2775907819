// Package automl implements automated model-family search: a fixed panel of
// regression estimators evaluated under time-ordered cross-validation, plus
// per-family hyperparameter grid search.
package automl

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
	"github.com/aristath/sentinel-brain/internal/work"
	"github.com/aristath/sentinel-brain/pkg/formulas"
)

// MinRows is the minimum number of valid rows after feature construction.
const MinRows = 20

// DefaultCVSplits is the fold count for the model search.
const DefaultCVSplits = 5

// candidate describes one model family in the search panel. Every candidate
// is wrapped with robust-scaling preprocessing at evaluation time.
type candidate struct {
	name  string
	build func() estimator.Estimator
}

// panel is the fixed set of model families evaluated by SearchModels.
func panel() []candidate {
	return []candidate{
		{"linear", func() estimator.Estimator { return estimator.NewLinear() }},
		{"ridge", func() estimator.Estimator { return estimator.NewRidge(1.0) }},
		{"lasso", func() estimator.Estimator { return estimator.NewLasso(0.001) }},
		{"random_forest", func() estimator.Estimator { return estimator.NewRandomForest(50, 6) }},
		{"gradient_boosting", func() estimator.Estimator { return estimator.NewGradientBoosting(50, 0.1, 3) }},
		{"svr", func() estimator.Estimator { return estimator.NewSVR(1.0, 0.01) }},
		{"mlp", func() estimator.Estimator { return estimator.NewMLP([]int{32, 16}, estimator.ActivationReLU, 0.001) }},
	}
}

// CandidateResult is one row of the per-candidate result table.
type CandidateResult struct {
	Name      string    `json:"name"`
	MeanScore float64   `json:"mean_score"` // negative MSE, higher is better
	ScoreStd  float64   `json:"score_std"`
	CVScores  []float64 `json:"cv_scores,omitempty"`
	Skipped   bool      `json:"skipped"`
	Reason    string    `json:"reason,omitempty"`
}

// SearchResult is the outcome of a model search.
type SearchResult struct {
	Status       domain.Status
	BestModel    estimator.Estimator
	BestName     string
	BestScore    float64
	BestCVScores []float64
	Metrics      estimator.Metrics // out-of-sample metrics of the best candidate
	Results      []CandidateResult
	ErrorMessage string
}

// Searcher evaluates the candidate panel and tunes hyperparameters.
type Searcher struct {
	pool *work.Pool
	log  zerolog.Logger

	mu         sync.Mutex
	searches   int
	lastStatus domain.Status
	lastBest   string
}

// NewSearcher creates an AutoML searcher backed by the given eval pool.
func NewSearcher(pool *work.Pool, log zerolog.Logger) *Searcher {
	return &Searcher{
		pool: pool,
		log:  log.With().Str("component", "automl").Logger(),
	}
}

// SearchModels evaluates every panel candidate with time-ordered CV and
// returns the best one refitted on the full dataset. Candidates that error
// or time out are skipped, never fatal.
func (s *Searcher) SearchModels(ctx context.Context, series domain.MarketSeries) SearchResult {
	res := s.searchModels(ctx, series)

	s.mu.Lock()
	s.searches++
	s.lastStatus = res.Status
	s.lastBest = res.BestName
	s.mu.Unlock()

	return res
}

// Summary reports search activity for status payloads.
func (s *Searcher) Summary() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]any{
		"panel_size":         len(panel()),
		"searches_performed": s.searches,
	}
	if s.searches > 0 {
		out["last_status"] = string(s.lastStatus)
		out["last_best"] = s.lastBest
	}
	return out
}

func (s *Searcher) searchModels(ctx context.Context, series domain.MarketSeries) SearchResult {
	ds, err := features.BuildDataset(series, MinRows)
	if err != nil {
		return SearchResult{Status: domain.StatusInsufficientData, ErrorMessage: err.Error()}
	}

	cands := panel()

	tasks := make([]work.Task[CandidateResult], len(cands))
	for i, c := range cands {
		c := c
		build := func() estimator.Estimator { return estimator.NewPipeline(c.build()) }
		tasks[i] = func(taskCtx context.Context) (CandidateResult, error) {
			scores, err := crossValidate(taskCtx, build, ds, DefaultCVSplits)
			if err != nil {
				return CandidateResult{}, err
			}
			return CandidateResult{
				Name:      c.name,
				MeanScore: formulas.Mean(scores),
				ScoreStd:  formulas.StdDev(scores),
				CVScores:  scores,
			}, nil
		}
	}

	results, errs := work.Run(ctx, s.pool, tasks)
	for i, err := range errs {
		if err != nil {
			s.log.Warn().Err(err).Str("candidate", cands[i].name).Msg("Candidate skipped")
			results[i] = CandidateResult{Name: cands[i].name, Skipped: true, Reason: err.Error()}
		}
	}

	bestIdx := -1
	for i, r := range results {
		if r.Skipped {
			continue
		}
		if bestIdx < 0 || better(r, results[bestIdx]) {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return SearchResult{
			Status:       domain.StatusCandidateFailed,
			Results:      results,
			ErrorMessage: "all candidates failed evaluation",
		}
	}

	best := cands[bestIdx]
	buildBest := func() estimator.Estimator { return estimator.NewPipeline(best.build()) }

	metrics, err := holdoutMetrics(buildBest, ds, DefaultCVSplits)
	if err != nil {
		return SearchResult{Status: domain.StatusCandidateFailed, Results: results, ErrorMessage: err.Error()}
	}

	model := buildBest()
	if err := model.Fit(ds.X, ds.Y); err != nil {
		return SearchResult{Status: domain.StatusCandidateFailed, Results: results, ErrorMessage: err.Error()}
	}

	s.log.Info().
		Str("best", best.name).
		Float64("score", results[bestIdx].MeanScore).
		Float64("r2", metrics.R2).
		Msg("Model search complete")

	return SearchResult{
		Status:       domain.StatusSuccess,
		BestModel:    model,
		BestName:     best.name,
		BestScore:    results[bestIdx].MeanScore,
		BestCVScores: results[bestIdx].CVScores,
		Metrics:      metrics,
		Results:      results,
	}
}

// better ranks candidates by mean CV score, breaking ties with lower score
// variance. NaN scores always lose.
func better(a, b CandidateResult) bool {
	if math.IsNaN(a.MeanScore) {
		return false
	}
	if math.IsNaN(b.MeanScore) {
		return true
	}
	if a.MeanScore != b.MeanScore {
		return a.MeanScore > b.MeanScore
	}
	return a.ScoreStd < b.ScoreStd
}

// BaseKind strips pipeline/weighted wrappers off an estimator kind.
func BaseKind(est estimator.Estimator) string {
	kind := est.Kind()
	for {
		switch {
		case strings.HasPrefix(kind, "pipeline:"):
			kind = strings.TrimPrefix(kind, "pipeline:")
		case strings.HasPrefix(kind, "weighted:"):
			kind = strings.TrimPrefix(kind, "weighted:")
		default:
			return kind
		}
	}
}
