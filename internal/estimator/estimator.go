// Package estimator provides the pluggable regression estimators used by
// every learning strategy. Components operate only through the Estimator
// interface so concrete families can be swapped freely.
package estimator

import (
	"errors"
	"fmt"
)

// Estimator is the capability interface every model family implements.
type Estimator interface {
	// Fit trains the estimator on rows of features and their labels.
	Fit(X [][]float64, y []float64) error
	// Predict returns one prediction per input row.
	Predict(X [][]float64) ([]float64, error)
	// Kind returns the stable family name ("ridge", "random_forest", ...).
	Kind() string
	// Clone returns an untrained copy with the same hyperparameters.
	Clone() Estimator
}

// ImportanceProvider is the optional capability of exposing per-feature
// importances. Linear and tree families provide it; SVR and MLP do not.
type ImportanceProvider interface {
	// Importances returns normalized per-feature importances, or false if the
	// estimator has not been fitted yet.
	Importances() ([]float64, bool)
}

// ErrNotFitted is returned by Predict before a successful Fit.
var ErrNotFitted = errors.New("estimator is not fitted")

func validateTrainingData(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("feature rows (%d) and labels (%d) differ", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return errors.New("zero-width feature rows")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("ragged feature row %d: got %d columns, want %d", i, len(row), width)
		}
	}
	return nil
}

func normalize(values []float64) []float64 {
	var sum float64
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		sum += v
	}
	out := make([]float64, len(values))
	if sum == 0 {
		return out
	}
	for i, v := range values {
		if v < 0 {
			v = -v
		}
		out[i] = v / sum
	}
	return out
}
