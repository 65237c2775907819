package estimator

import (
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of variance-reducing regression trees
// with per-tree feature subsampling.
type RandomForest struct {
	NEstimators    int   `msgpack:"n_estimators"`
	MaxDepth       int   `msgpack:"max_depth"`
	MinSamplesLeaf int   `msgpack:"min_samples_leaf"`
	Seed           int64 `msgpack:"seed"`

	Trees              []*treeNode `msgpack:"trees"`
	FeatureImportances []float64   `msgpack:"feature_importances"`
	Fitted             bool        `msgpack:"fitted"`
}

// NewRandomForest creates a random forest regressor.
func NewRandomForest(nEstimators, maxDepth int) *RandomForest {
	return &RandomForest{
		NEstimators:    nEstimators,
		MaxDepth:       maxDepth,
		MinSamplesLeaf: 2,
		Seed:           1,
	}
}

func (f *RandomForest) Kind() string { return "random_forest" }

func (f *RandomForest) Clone() Estimator {
	return &RandomForest{
		NEstimators:    f.NEstimators,
		MaxDepth:       f.MaxDepth,
		MinSamplesLeaf: f.MinSamplesLeaf,
		Seed:           f.Seed,
	}
}

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := validateTrainingData(X, y); err != nil {
		return err
	}

	n := len(X)
	p := len(X[0])
	maxFeatures := int(math.Ceil(math.Sqrt(float64(p))))
	rng := rand.New(rand.NewSource(f.Seed))

	f.Trees = make([]*treeNode, 0, f.NEstimators)
	totalImportances := make([]float64, p)

	indices := make([]int, n)
	for t := 0; t < f.NEstimators; t++ {
		// Bootstrap sample.
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		tb := &treeBuilder{
			maxDepth:       f.MaxDepth,
			minSamplesLeaf: f.MinSamplesLeaf,
			maxFeatures:    maxFeatures,
			rng:            rng,
		}
		f.Trees = append(f.Trees, tb.build(X, y, indices, 0))
		for j, v := range tb.importances {
			totalImportances[j] += v
		}
	}

	f.FeatureImportances = normalize(totalImportances)
	f.Fitted = true
	return nil
}

func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if !f.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

func (f *RandomForest) Importances() ([]float64, bool) {
	if !f.Fitted {
		return nil, false
	}
	return f.FeatureImportances, true
}

// GradientBoosting fits shallow trees sequentially on residuals.
type GradientBoosting struct {
	NEstimators    int     `msgpack:"n_estimators"`
	LearningRate   float64 `msgpack:"learning_rate"`
	MaxDepth       int     `msgpack:"max_depth"`
	MinSamplesLeaf int     `msgpack:"min_samples_leaf"`

	InitValue          float64     `msgpack:"init_value"`
	Trees              []*treeNode `msgpack:"trees"`
	FeatureImportances []float64   `msgpack:"feature_importances"`
	Fitted             bool        `msgpack:"fitted"`
}

// NewGradientBoosting creates a gradient boosting regressor.
func NewGradientBoosting(nEstimators int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    nEstimators,
		LearningRate:   learningRate,
		MaxDepth:       maxDepth,
		MinSamplesLeaf: 2,
	}
}

func (g *GradientBoosting) Kind() string { return "gradient_boosting" }

func (g *GradientBoosting) Clone() Estimator {
	return &GradientBoosting{
		NEstimators:    g.NEstimators,
		LearningRate:   g.LearningRate,
		MaxDepth:       g.MaxDepth,
		MinSamplesLeaf: g.MinSamplesLeaf,
	}
}

func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := validateTrainingData(X, y); err != nil {
		return err
	}

	n := len(X)
	p := len(X[0])

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	g.InitValue = 0
	for _, v := range y {
		g.InitValue += v
	}
	g.InitValue /= float64(n)

	residual := make([]float64, n)
	current := make([]float64, n)
	for i := range current {
		current[i] = g.InitValue
		residual[i] = y[i] - current[i]
	}

	g.Trees = make([]*treeNode, 0, g.NEstimators)
	totalImportances := make([]float64, p)

	for t := 0; t < g.NEstimators; t++ {
		tb := &treeBuilder{
			maxDepth:       g.MaxDepth,
			minSamplesLeaf: g.MinSamplesLeaf,
		}
		tree := tb.build(X, residual, indices, 0)
		g.Trees = append(g.Trees, tree)
		for j, v := range tb.importances {
			totalImportances[j] += v
		}

		for i, row := range X {
			current[i] += g.LearningRate * tree.predict(row)
			residual[i] = y[i] - current[i]
		}
	}

	g.FeatureImportances = normalize(totalImportances)
	g.Fitted = true
	return nil
}

func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if !g.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := g.InitValue
		for _, tree := range g.Trees {
			v += g.LearningRate * tree.predict(row)
		}
		out[i] = v
	}
	return out, nil
}

func (g *GradientBoosting) Importances() ([]float64, bool) {
	if !g.Fitted {
		return nil, false
	}
	return g.FeatureImportances, true
}
