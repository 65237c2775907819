package nas

import (
	"fmt"
	"time"
)

// Layer-count and regularization bounds for evolution.
const (
	minTotalLayers = 3
	maxTotalLayers = 6
	minAlpha       = 0.0001
	maxAlpha       = 0.01
)

// Feedback thresholds for the deterministic mutation policy.
const (
	poorFeedback = 0.5
	goodFeedback = 0.8
)

// EvolutionRecord is an immutable entry of the evolution history log.
type EvolutionRecord struct {
	From      Architecture `json:"from"`
	To        Architecture `json:"to"`
	Feedback  float64      `json:"feedback"`
	Action    string       `json:"action"` // "grow", "shrink", "unchanged"
	Timestamp time.Time    `json:"timestamp"`
}

// Evolve applies the deterministic mutation policy to an architecture based
// on performance feedback in [0,1]:
//
//   - feedback < 0.5: grow. Append a hidden layer sized as half of the
//     penultimate layer (capped at 6 layers total) and double the
//     regularization strength (capped at 0.01).
//   - feedback > 0.8: shrink. Drop the penultimate layer (floored at 3
//     layers total) and halve regularization (floored at 0.0001).
//   - otherwise: unchanged.
//
// Every call appends a record to the evolution history.
func (s *Search) Evolve(current Architecture, feedback float64) Architecture {
	evolved := Architecture{
		LayerSizes: append([]int(nil), current.LayerSizes...),
		Activation: current.Activation,
		Alpha:      current.Alpha,
	}
	action := "unchanged"

	switch {
	case feedback < poorFeedback:
		if len(evolved.LayerSizes) < maxTotalLayers {
			penultimate := evolved.LayerSizes[len(evolved.LayerSizes)-2]
			newSize := penultimate / 2
			if newSize < 2 {
				newSize = 2
			}
			// Insert before the output layer.
			out := evolved.LayerSizes[len(evolved.LayerSizes)-1]
			evolved.LayerSizes = append(evolved.LayerSizes[:len(evolved.LayerSizes)-1], newSize, out)
			action = "grow"
		}
		evolved.Alpha = current.Alpha * 2
		if evolved.Alpha > maxAlpha {
			evolved.Alpha = maxAlpha
		}
		if action == "unchanged" {
			action = "grow"
		}

	case feedback > goodFeedback:
		if len(evolved.LayerSizes) > minTotalLayers {
			// Drop the penultimate layer.
			n := len(evolved.LayerSizes)
			evolved.LayerSizes = append(evolved.LayerSizes[:n-2], evolved.LayerSizes[n-1])
			action = "shrink"
		}
		evolved.Alpha = current.Alpha / 2
		if evolved.Alpha < minAlpha {
			evolved.Alpha = minAlpha
		}
		if action == "unchanged" {
			action = "shrink"
		}
	}

	s.appendHistory(EvolutionRecord{
		From:      current,
		To:        evolved,
		Feedback:  feedback,
		Action:    action,
		Timestamp: time.Now(),
	})

	s.log.Debug().
		Float64("feedback", feedback).
		Str("action", action).
		Ints("layers", evolved.LayerSizes).
		Float64("alpha", evolved.Alpha).
		Msg("Architecture evolved")

	return evolved
}

// History returns a copy of the evolution history log.
func (s *Search) History() []EvolutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EvolutionRecord(nil), s.history...)
}

// Summary describes the search state for status exports.
func (s *Search) Summary() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"evolutions_performed": len(s.history),
	}
}

func (s *Search) appendHistory(rec EvolutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
}

func errTooFewRows(n, nSplits int) error {
	return fmt.Errorf("%d rows is too few for %d time-ordered folds", n, nSplits)
}
