package estimator

import (
	"fmt"
	"math"
	"math/rand"
)

// Activation names supported by the MLP.
const (
	ActivationReLU = "relu"
	ActivationTanh = "tanh"
)

// MLP is a small feed-forward neural network regressor with a linear output
// unit, trained by full-batch gradient descent with L2 regularization.
type MLP struct {
	HiddenSizes []int   `msgpack:"hidden_sizes"`
	Activation  string  `msgpack:"activation"`
	Alpha       float64 `msgpack:"alpha"`
	LR          float64 `msgpack:"lr"`
	Epochs      int     `msgpack:"epochs"`
	Seed        int64   `msgpack:"seed"`

	InputWidth int         `msgpack:"input_width"`
	Weights    [][]float64 `msgpack:"weights"` // per layer, row-major (out x in)
	Biases     [][]float64 `msgpack:"biases"`
	Fitted     bool        `msgpack:"fitted"`
}

// NewMLP creates a feed-forward regressor with the given hidden layer sizes.
func NewMLP(hiddenSizes []int, activation string, alpha float64) *MLP {
	return &MLP{
		HiddenSizes: append([]int(nil), hiddenSizes...),
		Activation:  activation,
		Alpha:       alpha,
		LR:          0.01,
		Epochs:      200,
		Seed:        1,
	}
}

func (m *MLP) Kind() string { return "mlp" }

func (m *MLP) Clone() Estimator {
	return &MLP{
		HiddenSizes: append([]int(nil), m.HiddenSizes...),
		Activation:  m.Activation,
		Alpha:       m.Alpha,
		LR:          m.LR,
		Epochs:      m.Epochs,
		Seed:        m.Seed,
	}
}

func (m *MLP) layerSizes() []int {
	sizes := []int{m.InputWidth}
	sizes = append(sizes, m.HiddenSizes...)
	return append(sizes, 1)
}

func (m *MLP) activate(v float64) float64 {
	if m.Activation == ActivationTanh {
		return math.Tanh(v)
	}
	if v < 0 {
		return 0
	}
	return v
}

func (m *MLP) activateDeriv(activated float64) float64 {
	if m.Activation == ActivationTanh {
		return 1 - activated*activated
	}
	if activated > 0 {
		return 1
	}
	return 0
}

func (m *MLP) Fit(X [][]float64, y []float64) error {
	if err := validateTrainingData(X, y); err != nil {
		return err
	}
	if m.Activation != ActivationReLU && m.Activation != ActivationTanh {
		return fmt.Errorf("unknown activation %q", m.Activation)
	}
	for _, h := range m.HiddenSizes {
		if h < 1 {
			return fmt.Errorf("invalid hidden layer size %d", h)
		}
	}

	m.InputWidth = len(X[0])
	sizes := m.layerSizes()
	layers := len(sizes) - 1
	rng := rand.New(rand.NewSource(m.Seed))

	// Xavier initialization.
	m.Weights = make([][]float64, layers)
	m.Biases = make([][]float64, layers)
	for l := 0; l < layers; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2.0 / float64(in+out))
		m.Weights[l] = make([]float64, out*in)
		for i := range m.Weights[l] {
			m.Weights[l][i] = rng.NormFloat64() * scale
		}
		m.Biases[l] = make([]float64, out)
	}

	n := len(X)
	acts := make([][][]float64, n) // per sample, per layer (including input)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		// Forward pass.
		for i, row := range X {
			acts[i] = m.forward(row)
		}

		// Backward pass, accumulating full-batch gradients.
		gradW := make([][]float64, layers)
		gradB := make([][]float64, layers)
		for l := 0; l < layers; l++ {
			gradW[l] = make([]float64, len(m.Weights[l]))
			gradB[l] = make([]float64, len(m.Biases[l]))
		}

		for i := range X {
			pred := acts[i][layers][0]
			delta := []float64{2 * (pred - y[i]) / float64(n)}

			for l := layers - 1; l >= 0; l-- {
				in, out := sizes[l], sizes[l+1]
				prev := acts[i][l]

				for o := 0; o < out; o++ {
					gradB[l][o] += delta[o]
					for j := 0; j < in; j++ {
						gradW[l][o*in+j] += delta[o] * prev[j]
					}
				}

				if l == 0 {
					break
				}
				next := make([]float64, in)
				for j := 0; j < in; j++ {
					var sum float64
					for o := 0; o < out; o++ {
						sum += delta[o] * m.Weights[l][o*in+j]
					}
					next[j] = sum * m.activateDeriv(prev[j])
				}
				delta = next
			}
		}

		for l := 0; l < layers; l++ {
			for i := range m.Weights[l] {
				m.Weights[l][i] -= m.LR * (gradW[l][i] + m.Alpha*m.Weights[l][i])
			}
			for i := range m.Biases[l] {
				m.Biases[l][i] -= m.LR * gradB[l][i]
			}
		}
	}

	m.Fitted = true
	return nil
}

// forward returns the activations for every layer, input included. The final
// layer is linear.
func (m *MLP) forward(row []float64) [][]float64 {
	sizes := m.layerSizes()
	layers := len(sizes) - 1

	acts := make([][]float64, layers+1)
	acts[0] = row

	for l := 0; l < layers; l++ {
		in, out := sizes[l], sizes[l+1]
		next := make([]float64, out)
		for o := 0; o < out; o++ {
			v := m.Biases[l][o]
			for j := 0; j < in; j++ {
				v += m.Weights[l][o*in+j] * acts[l][j]
			}
			if l < layers-1 {
				v = m.activate(v)
			}
			next[o] = v
		}
		acts[l+1] = next
	}
	return acts
}

func (m *MLP) Predict(X [][]float64) ([]float64, error) {
	if !m.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != m.InputWidth {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), m.InputWidth)
		}
		acts := m.forward(row)
		out[i] = acts[len(acts)-1][0]
	}
	return out, nil
}
