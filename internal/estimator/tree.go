package estimator

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is a node of a regression tree. Exported fields so fitted trees
// serialize through msgpack.
type treeNode struct {
	Feature   int       `msgpack:"feature"`
	Threshold float64   `msgpack:"threshold"`
	Left      *treeNode `msgpack:"left"`
	Right     *treeNode `msgpack:"right"`
	Value     float64   `msgpack:"value"`
	Leaf      bool      `msgpack:"leaf"`
}

func (n *treeNode) predict(row []float64) float64 {
	if n.Leaf {
		return n.Value
	}
	if row[n.Feature] <= n.Threshold {
		return n.Left.predict(row)
	}
	return n.Right.predict(row)
}

// treeBuilder grows variance-reducing regression trees.
type treeBuilder struct {
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int // 0 = all features
	rng            *rand.Rand
	importances    []float64 // accumulated variance reduction per feature
}

func (tb *treeBuilder) build(X [][]float64, y []float64, indices []int, depth int) *treeNode {
	if tb.importances == nil && len(X) > 0 {
		tb.importances = make([]float64, len(X[0]))
	}

	mean, variance := meanVariance(y, indices)
	if depth >= tb.maxDepth || len(indices) < 2*tb.minSamplesLeaf || variance == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	feature, threshold, gain, ok := tb.bestSplit(X, y, indices, variance)
	if !ok {
		return &treeNode{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < tb.minSamplesLeaf || len(right) < tb.minSamplesLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	tb.importances[feature] += gain * float64(len(indices))

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      tb.build(X, y, left, depth+1),
		Right:     tb.build(X, y, right, depth+1),
	}
}

// bestSplit scans sorted feature values with running sums, so each feature
// costs O(n log n).
func (tb *treeBuilder) bestSplit(X [][]float64, y []float64, indices []int, parentVar float64) (feature int, threshold, gain float64, ok bool) {
	p := len(X[0])

	candidates := make([]int, 0, p)
	for j := 0; j < p; j++ {
		candidates = append(candidates, j)
	}
	if tb.maxFeatures > 0 && tb.maxFeatures < p && tb.rng != nil {
		tb.rng.Shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:tb.maxFeatures]
	}

	n := float64(len(indices))
	bestGain := 0.0

	sorted := make([]int, len(indices))
	for _, j := range candidates {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][j] < X[sorted[b]][j] })

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += y[i]
			totalSq += y[i] * y[i]
		}

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// Only split between distinct feature values.
			if X[i][j] == X[sorted[k+1]][j] {
				continue
			}

			nl := float64(k + 1)
			nr := n - nl
			leftVar := leftSq/nl - (leftSum/nl)*(leftSum/nl)
			rightVar := (totalSq-leftSq)/nr - ((totalSum-leftSum)/nr)*((totalSum-leftSum)/nr)
			weighted := (nl*leftVar + nr*rightVar) / n
			g := parentVar - weighted
			if g > bestGain {
				bestGain = g
				feature = j
				threshold = (X[i][j] + X[sorted[k+1]][j]) / 2
			}
		}
	}

	if bestGain <= 1e-12 {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}

func meanVariance(y []float64, indices []int) (mean, variance float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	for _, i := range indices {
		mean += y[i]
	}
	mean /= float64(len(indices))
	for _, i := range indices {
		d := y[i] - mean
		variance += d * d
	}
	variance /= float64(len(indices))
	if math.IsNaN(variance) {
		variance = 0
	}
	return mean, variance
}
