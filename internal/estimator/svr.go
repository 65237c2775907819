package estimator

// SVR is a linear support vector regressor with epsilon-insensitive loss,
// fitted by subgradient descent. It deliberately does not expose feature
// importances; transfer learning falls back to weight transfer for it.
type SVR struct {
	C       float64 `msgpack:"c"`
	Epsilon float64 `msgpack:"epsilon"`
	Epochs  int     `msgpack:"epochs"`
	LR      float64 `msgpack:"lr"`

	Weights   []float64 `msgpack:"weights"`
	Intercept float64   `msgpack:"intercept"`
	Fitted    bool      `msgpack:"fitted"`
}

// NewSVR creates a linear epsilon-SVR.
func NewSVR(c, epsilon float64) *SVR {
	return &SVR{C: c, Epsilon: epsilon, Epochs: 300, LR: 0.01}
}

func (s *SVR) Kind() string { return "svr" }

func (s *SVR) Clone() Estimator {
	return &SVR{C: s.C, Epsilon: s.Epsilon, Epochs: s.Epochs, LR: s.LR}
}

func (s *SVR) Fit(X [][]float64, y []float64) error {
	if err := validateTrainingData(X, y); err != nil {
		return err
	}

	n := len(X)
	p := len(X[0])
	w := make([]float64, p)
	b := 0.0

	// Minimize 0.5*||w||^2 + C * sum(max(0, |err| - epsilon)) by full-batch
	// subgradient steps with 1/t learning-rate decay.
	for epoch := 1; epoch <= s.Epochs; epoch++ {
		lr := s.LR / (1 + 0.01*float64(epoch))

		grad := make([]float64, p)
		gradB := 0.0
		for i, row := range X {
			pred := b
			for j, x := range row {
				pred += w[j] * x
			}
			err := pred - y[i]
			var sign float64
			switch {
			case err > s.Epsilon:
				sign = 1
			case err < -s.Epsilon:
				sign = -1
			}
			if sign != 0 {
				for j, x := range row {
					grad[j] += sign * x
				}
				gradB += sign
			}
		}

		scale := s.C / float64(n)
		for j := 0; j < p; j++ {
			w[j] -= lr * (w[j] + scale*grad[j])
		}
		b -= lr * scale * gradB
	}

	s.Weights, s.Intercept, s.Fitted = w, b, true
	return nil
}

func (s *SVR) Predict(X [][]float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	return predictLinear(X, s.Weights, s.Intercept)
}
