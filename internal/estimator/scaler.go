package estimator

import (
	"fmt"
	"sort"
)

// RobustScaler centers features on the median and scales by the
// interquartile range, so outlier candles do not dominate training.
type RobustScaler struct {
	Medians []float64 `msgpack:"medians"`
	Scales  []float64 `msgpack:"scales"`
	Fitted  bool      `msgpack:"fitted"`
}

// NewRobustScaler creates an unfitted robust scaler.
func NewRobustScaler() *RobustScaler { return &RobustScaler{} }

// Fit computes per-column medians and IQRs.
func (s *RobustScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return fmt.Errorf("cannot fit scaler on empty data")
	}

	p := len(X[0])
	s.Medians = make([]float64, p)
	s.Scales = make([]float64, p)

	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		sort.Float64s(col)

		s.Medians[j] = quantileSorted(col, 0.5)
		iqr := quantileSorted(col, 0.75) - quantileSorted(col, 0.25)
		if iqr == 0 {
			iqr = 1 // constant column, leave values centered only
		}
		s.Scales[j] = iqr
	}

	s.Fitted = true
	return nil
}

// Transform returns a scaled copy of X.
func (s *RobustScaler) Transform(X [][]float64) ([][]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Medians) {
			return nil, fmt.Errorf("row %d has %d features, scaler expects %d", i, len(row), len(s.Medians))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Medians[j]) / s.Scales[j]
		}
		out[i] = scaled
	}
	return out, nil
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Pipeline wraps an estimator with robust-scaling preprocessing. It satisfies
// Estimator itself so searches and transfers treat it like any other model.
type Pipeline struct {
	Scaler *RobustScaler `msgpack:"scaler"`
	Inner  Estimator     `msgpack:"-"`
}

// NewPipeline wraps the estimator with a fresh robust scaler.
func NewPipeline(inner Estimator) *Pipeline {
	return &Pipeline{Scaler: NewRobustScaler(), Inner: inner}
}

func (p *Pipeline) Kind() string { return "pipeline:" + p.Inner.Kind() }

func (p *Pipeline) Clone() Estimator { return NewPipeline(p.Inner.Clone()) }

func (p *Pipeline) Fit(X [][]float64, y []float64) error {
	if err := p.Scaler.Fit(X); err != nil {
		return err
	}
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return err
	}
	return p.Inner.Fit(scaled, y)
}

func (p *Pipeline) Predict(X [][]float64) ([]float64, error) {
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Inner.Predict(scaled)
}

// Importances passes through to the wrapped estimator when it provides them.
func (p *Pipeline) Importances() ([]float64, bool) {
	if ip, ok := p.Inner.(ImportanceProvider); ok {
		return ip.Importances()
	}
	return nil, false
}
