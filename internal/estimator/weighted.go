package estimator

// WeightedFeatures scales each feature by a fixed importance weight before
// delegating to the wrapped estimator. Transfer learning uses it to carry
// blended source/target importances into the transferred model.
type WeightedFeatures struct {
	Weights []float64 `msgpack:"weights"`
	Inner   Estimator `msgpack:"-"`
}

func (w *WeightedFeatures) Kind() string { return "weighted:" + w.Inner.Kind() }

func (w *WeightedFeatures) Clone() Estimator {
	return &WeightedFeatures{
		Weights: append([]float64(nil), w.Weights...),
		Inner:   w.Inner.Clone(),
	}
}

func (w *WeightedFeatures) Fit(X [][]float64, y []float64) error {
	return w.Inner.Fit(w.scale(X), y)
}

func (w *WeightedFeatures) Predict(X [][]float64) ([]float64, error) {
	return w.Inner.Predict(w.scale(X))
}

// Importances reports the fixed blend weights, normalized.
func (w *WeightedFeatures) Importances() ([]float64, bool) {
	return normalize(w.Weights), true
}

func (w *WeightedFeatures) scale(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			weight := 1.0
			if j < len(w.Weights) && w.Weights[j] > 0 {
				weight = w.Weights[j]
			}
			scaled[j] = v * weight
		}
		out[i] = scaled
	}
	return out
}
