// Package nas implements neural-architecture search: generating, evaluating
// and evolutionarily refining feed-forward network candidates for the same
// regression task the other strategies work on.
package nas

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
	"github.com/aristath/sentinel-brain/internal/work"
	"github.com/aristath/sentinel-brain/pkg/formulas"
)

// CVSplits is the fold count for architecture evaluation. Deliberately fewer
// folds than the AutoML search, for speed.
const CVSplits = 3

// MinRows matches the AutoML row requirement so both searches see the same
// datasets.
const MinRows = 20

// Constraints bound the generated architecture space.
type Constraints struct {
	MaxLayers  int // total layers including input and output
	MinNeurons int
	MaxNeurons int
}

// DefaultConstraints returns the standard search space bounds.
func DefaultConstraints() Constraints {
	return Constraints{MaxLayers: 5, MinNeurons: 8, MaxNeurons: 64}
}

// Architecture describes a feed-forward candidate. LayerSizes is ordered:
// first entry is the input width, last is the single output unit.
type Architecture struct {
	LayerSizes []int   `json:"layer_sizes"`
	Activation string  `json:"activation"`
	Alpha      float64 `json:"regularization_alpha"`
}

// HiddenSizes returns the hidden layer sizes (everything between input and
// output).
func (a Architecture) HiddenSizes() []int {
	if len(a.LayerSizes) < 3 {
		return nil
	}
	return append([]int(nil), a.LayerSizes[1:len(a.LayerSizes)-1]...)
}

// CandidateResult is one evaluated architecture.
type CandidateResult struct {
	Architecture Architecture `json:"architecture"`
	MeanScore    float64      `json:"mean_score"` // negative MSE
	Skipped      bool         `json:"skipped"`
	Reason       string       `json:"reason,omitempty"`
}

// SearchResult is the outcome of an architecture search.
type SearchResult struct {
	Status       domain.Status
	Best         Architecture
	BestModel    estimator.Estimator
	BestScore    float64
	Metrics      estimator.Metrics
	Candidates   []CandidateResult
	ErrorMessage string
}

// Search generates and evaluates architecture candidates.
type Search struct {
	pool *work.Pool
	log  zerolog.Logger

	mu      sync.Mutex
	history []EvolutionRecord
}

// NewSearch creates an architecture search backed by the given eval pool.
func NewSearch(pool *work.Pool, log zerolog.Logger) *Search {
	return &Search{
		pool: pool,
		log:  log.With().Str("component", "nas").Logger(),
	}
}

// SearchArchitecture evaluates a bounded candidate set with lightweight
// time-ordered CV and returns the best architecture refitted on all data.
// Failing candidates are skipped.
func (s *Search) SearchArchitecture(ctx context.Context, series domain.MarketSeries, constraints Constraints) SearchResult {
	ds, err := features.BuildDataset(series, MinRows)
	if err != nil {
		return SearchResult{Status: domain.StatusInsufficientData, ErrorMessage: err.Error()}
	}

	inputWidth := len(ds.X[0])
	archs := generate(inputWidth, constraints)

	tasks := make([]work.Task[CandidateResult], len(archs))
	for i, arch := range archs {
		arch := arch
		tasks[i] = func(taskCtx context.Context) (CandidateResult, error) {
			scores, err := crossValidate(taskCtx, arch, ds)
			if err != nil {
				return CandidateResult{}, err
			}
			return CandidateResult{Architecture: arch, MeanScore: formulas.Mean(scores)}, nil
		}
	}

	results, errs := work.Run(ctx, s.pool, tasks)
	for i, err := range errs {
		if err != nil {
			s.log.Warn().Err(err).Ints("layers", archs[i].LayerSizes).Msg("Architecture skipped")
			results[i] = CandidateResult{Architecture: archs[i], Skipped: true, Reason: err.Error()}
		}
	}

	bestIdx := -1
	for i, r := range results {
		if r.Skipped || math.IsNaN(r.MeanScore) {
			continue
		}
		if bestIdx < 0 || r.MeanScore > results[bestIdx].MeanScore {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return SearchResult{
			Status:       domain.StatusCandidateFailed,
			Candidates:   results,
			ErrorMessage: "all architecture candidates failed evaluation",
		}
	}

	best := archs[bestIdx]
	metrics, err := finalFoldMetrics(best, ds)
	if err != nil {
		return SearchResult{Status: domain.StatusCandidateFailed, Candidates: results, ErrorMessage: err.Error()}
	}

	model := buildModel(best)
	if err := model.Fit(ds.X, ds.Y); err != nil {
		return SearchResult{Status: domain.StatusCandidateFailed, Candidates: results, ErrorMessage: err.Error()}
	}

	s.log.Info().
		Ints("layers", best.LayerSizes).
		Str("activation", best.Activation).
		Float64("score", results[bestIdx].MeanScore).
		Msg("Architecture search complete")

	return SearchResult{
		Status:     domain.StatusSuccess,
		Best:       best,
		BestModel:  model,
		BestScore:  results[bestIdx].MeanScore,
		Metrics:    metrics,
		Candidates: results,
	}
}

// generate builds the bounded candidate set: depth up to the layer budget,
// widths on a halving ladder inside [MinNeurons, MaxNeurons], both
// activations, two regularization strengths.
func generate(inputWidth int, c Constraints) []Architecture {
	if c.MaxLayers < 3 {
		c.MaxLayers = 3
	}
	if c.MinNeurons < 1 {
		c.MinNeurons = 1
	}
	if c.MaxNeurons < c.MinNeurons {
		c.MaxNeurons = c.MinNeurons
	}

	var archs []Architecture
	maxHidden := c.MaxLayers - 2

	for hidden := 1; hidden <= maxHidden; hidden++ {
		for _, first := range []int{c.MaxNeurons, c.MaxNeurons / 2} {
			if first < c.MinNeurons {
				continue
			}
			sizes := []int{inputWidth}
			width := first
			for h := 0; h < hidden; h++ {
				if width < c.MinNeurons {
					width = c.MinNeurons
				}
				sizes = append(sizes, width)
				width /= 2
			}
			sizes = append(sizes, 1)

			for _, activation := range []string{estimator.ActivationReLU, estimator.ActivationTanh} {
				for _, alpha := range []float64{0.0001, 0.001} {
					archs = append(archs, Architecture{
						LayerSizes: append([]int(nil), sizes...),
						Activation: activation,
						Alpha:      alpha,
					})
				}
			}
		}
	}
	return archs
}

func buildModel(arch Architecture) estimator.Estimator {
	return estimator.NewPipeline(estimator.NewMLP(arch.HiddenSizes(), arch.Activation, arch.Alpha))
}

func crossValidate(ctx context.Context, arch Architecture, ds *features.Dataset) ([]float64, error) {
	splits, err := timeSplits(ds.Len(), CVSplits)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(splits))
	for _, sp := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := buildModel(arch)
		if err := model.Fit(ds.X[:sp.trainEnd], ds.Y[:sp.trainEnd]); err != nil {
			return nil, err
		}
		preds, err := model.Predict(ds.X[sp.trainEnd:sp.testEnd])
		if err != nil {
			return nil, err
		}
		m := estimator.Evaluate(preds, ds.Y[sp.trainEnd:sp.testEnd])
		scores = append(scores, -m.MSE)
	}
	return scores, nil
}

func finalFoldMetrics(arch Architecture, ds *features.Dataset) (estimator.Metrics, error) {
	splits, err := timeSplits(ds.Len(), CVSplits)
	if err != nil {
		return estimator.Metrics{}, err
	}
	last := splits[len(splits)-1]

	model := buildModel(arch)
	if err := model.Fit(ds.X[:last.trainEnd], ds.Y[:last.trainEnd]); err != nil {
		return estimator.Metrics{}, err
	}
	preds, err := model.Predict(ds.X[last.trainEnd:last.testEnd])
	if err != nil {
		return estimator.Metrics{}, err
	}
	return estimator.Evaluate(preds, ds.Y[last.trainEnd:last.testEnd]), nil
}

type split struct {
	trainEnd int
	testEnd  int
}

// timeSplits builds expanding-window folds; training never postdates testing.
func timeSplits(n, nSplits int) ([]split, error) {
	foldSize := n / (nSplits + 1)
	if foldSize < 1 {
		return nil, errTooFewRows(n, nSplits)
	}
	splits := make([]split, 0, nSplits)
	for k := 1; k <= nSplits; k++ {
		trainEnd := foldSize * k
		testEnd := trainEnd + foldSize
		if k == nSplits {
			testEnd = n
		}
		splits = append(splits, split{trainEnd: trainEnd, testEnd: testEnd})
	}
	return splits, nil
}
