package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is ordinary least squares regression.
type Linear struct {
	Weights   []float64 `msgpack:"weights"`
	Intercept float64   `msgpack:"intercept"`
	Fitted    bool      `msgpack:"fitted"`
}

// NewLinear creates an ordinary least squares estimator.
func NewLinear() *Linear { return &Linear{} }

func (l *Linear) Kind() string     { return "linear" }
func (l *Linear) Clone() Estimator { return &Linear{} }

func (l *Linear) Fit(X [][]float64, y []float64) error {
	w, b, err := solveRidge(X, y, 0)
	if err != nil {
		return err
	}
	l.Weights, l.Intercept, l.Fitted = w, b, true
	return nil
}

func (l *Linear) Predict(X [][]float64) ([]float64, error) {
	if !l.Fitted {
		return nil, ErrNotFitted
	}
	return predictLinear(X, l.Weights, l.Intercept)
}

// Importances returns normalized absolute coefficient magnitudes.
func (l *Linear) Importances() ([]float64, bool) {
	if !l.Fitted {
		return nil, false
	}
	return normalize(l.Weights), true
}

// Ridge is L2-regularized linear regression.
type Ridge struct {
	Alpha     float64   `msgpack:"alpha"`
	Weights   []float64 `msgpack:"weights"`
	Intercept float64   `msgpack:"intercept"`
	Fitted    bool      `msgpack:"fitted"`
}

// NewRidge creates a ridge estimator with the given regularization strength.
func NewRidge(alpha float64) *Ridge { return &Ridge{Alpha: alpha} }

func (r *Ridge) Kind() string     { return "ridge" }
func (r *Ridge) Clone() Estimator { return &Ridge{Alpha: r.Alpha} }

func (r *Ridge) Fit(X [][]float64, y []float64) error {
	w, b, err := solveRidge(X, y, r.Alpha)
	if err != nil {
		return err
	}
	r.Weights, r.Intercept, r.Fitted = w, b, true
	return nil
}

func (r *Ridge) Predict(X [][]float64) ([]float64, error) {
	if !r.Fitted {
		return nil, ErrNotFitted
	}
	return predictLinear(X, r.Weights, r.Intercept)
}

func (r *Ridge) Importances() ([]float64, bool) {
	if !r.Fitted {
		return nil, false
	}
	return normalize(r.Weights), true
}

// Lasso is L1-regularized linear regression fitted by coordinate descent.
type Lasso struct {
	Alpha     float64   `msgpack:"alpha"`
	MaxIter   int       `msgpack:"max_iter"`
	Tol       float64   `msgpack:"tol"`
	Weights   []float64 `msgpack:"weights"`
	Intercept float64   `msgpack:"intercept"`
	Fitted    bool      `msgpack:"fitted"`
}

// NewLasso creates a lasso estimator with the given regularization strength.
func NewLasso(alpha float64) *Lasso {
	return &Lasso{Alpha: alpha, MaxIter: 1000, Tol: 1e-6}
}

func (l *Lasso) Kind() string     { return "lasso" }
func (l *Lasso) Clone() Estimator { return &Lasso{Alpha: l.Alpha, MaxIter: l.MaxIter, Tol: l.Tol} }

func (l *Lasso) Fit(X [][]float64, y []float64) error {
	if err := validateTrainingData(X, y); err != nil {
		return err
	}

	n := len(X)
	p := len(X[0])

	// Center features and labels so the intercept drops out of the
	// coordinate-descent updates.
	colMeans := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			colMeans[j] += v
		}
	}
	for j := range colMeans {
		colMeans[j] /= float64(n)
	}
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	xc := make([][]float64, n)
	yc := make([]float64, n)
	for i, row := range X {
		xc[i] = make([]float64, p)
		for j, v := range row {
			xc[i][j] = v - colMeans[j]
		}
		yc[i] = y[i] - yMean
	}

	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			colSq[j] += xc[i][j] * xc[i][j]
		}
	}

	w := make([]float64, p)
	residual := make([]float64, n)
	copy(residual, yc)

	lambda := l.Alpha * float64(n)
	for iter := 0; iter < l.MaxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < p; j++ {
			if colSq[j] == 0 {
				continue
			}
			// rho = x_j . (residual + x_j * w_j)
			rho := 0.0
			for i := 0; i < n; i++ {
				rho += xc[i][j] * (residual[i] + xc[i][j]*w[j])
			}
			newW := softThreshold(rho, lambda) / colSq[j]
			delta := newW - w[j]
			if delta != 0 {
				for i := 0; i < n; i++ {
					residual[i] -= xc[i][j] * delta
				}
				w[j] = newW
			}
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		if maxDelta < l.Tol {
			break
		}
	}

	intercept := yMean
	for j := 0; j < p; j++ {
		intercept -= w[j] * colMeans[j]
	}

	l.Weights, l.Intercept, l.Fitted = w, intercept, true
	return nil
}

func (l *Lasso) Predict(X [][]float64) ([]float64, error) {
	if !l.Fitted {
		return nil, ErrNotFitted
	}
	return predictLinear(X, l.Weights, l.Intercept)
}

func (l *Lasso) Importances() ([]float64, bool) {
	if !l.Fitted {
		return nil, false
	}
	return normalize(l.Weights), true
}

func softThreshold(v, lambda float64) float64 {
	switch {
	case v > lambda:
		return v - lambda
	case v < -lambda:
		return v + lambda
	default:
		return 0
	}
}

// solveRidge solves (XᵀX + αI) w = Xᵀy with a bias column. For α=0 a tiny
// jitter keeps the system well-conditioned on collinear features.
func solveRidge(X [][]float64, y []float64, alpha float64) (weights []float64, intercept float64, err error) {
	if err := validateTrainingData(X, y); err != nil {
		return nil, 0, err
	}

	n := len(X)
	p := len(X[0])
	cols := p + 1 // bias column last

	a := mat.NewDense(n, cols, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, p, 1)
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	// Normal equations: G = AᵀA + αI (bias unpenalized), rhs = Aᵀb.
	var g mat.Dense
	g.Mul(a.T(), a)
	reg := alpha
	if reg == 0 {
		reg = 1e-8
	}
	for j := 0; j < p; j++ {
		g.Set(j, j, g.At(j, j)+reg)
	}

	var rhs mat.VecDense
	rhs.MulVec(a.T(), b)

	var sol mat.VecDense
	if err := sol.SolveVec(&g, &rhs); err != nil {
		return nil, 0, fmt.Errorf("linear system solve failed: %w", err)
	}

	weights = make([]float64, p)
	for j := 0; j < p; j++ {
		weights[j] = sol.AtVec(j)
	}
	return weights, sol.AtVec(p), nil
}

func predictLinear(X [][]float64, weights []float64, intercept float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(weights) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), len(weights))
		}
		v := intercept
		for j, x := range row {
			v += weights[j] * x
		}
		out[i] = v
	}
	return out, nil
}
