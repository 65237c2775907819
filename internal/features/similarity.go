package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PadToEqualLength zero-pads the shorter of two vectors so both have the
// same length. The inputs are not modified.
func PadToEqualLength(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, a)
	copy(pb, b)
	return pa, pb
}

// CosineSimilarity computes the cosine similarity of two vectors after
// zero-padding them to equal length. Returns 0 when either vector has zero
// norm (similarity is undefined there).
func CosineSimilarity(a, b []float64) float64 {
	pa, pb := PadToEqualLength(a, b)

	normA := floats.Norm(pa, 2)
	normB := floats.Norm(pb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := floats.Dot(pa, pb) / (normA * normB)
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}
