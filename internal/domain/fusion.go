package domain

import (
	"time"
)

// FusionResult is the fused occupancy estimate for one room. It is
// derived state: recomputed every fusion cycle, never persisted, and
// safe to discard.
type FusionResult struct {
	Room        string    `json:"room"`
	Probability float64   `json:"probability"` // 0.0 - 1.0
	Signals     []Signal  `json:"contributing_signals,omitempty"`
	ComputedAt  time.Time `json:"computed_at"`
}

// CombineWeights folds independent evidence weights into a single
// occupancy probability: 1 - prod(1 - w_i). Commutative and
// associative, so signal ordering never affects the result. Zero
// signals combine to 0. The result is always in [0,1].
func CombineWeights(weights []float64) float64 {
	miss := 1.0
	for _, w := range weights {
		miss *= 1 - ClampWeight(w)
	}
	return ClampWeight(1 - miss)
}
