package fusion

import (
	"sort"
	"time"

	"roomsense/internal/domain"
)

// Fuse combines the cross-validated signals for each room into one
// occupancy probability. Rooms with no signals fuse to 0. While the
// household is Away, every probability is forced to 0 but the
// contributing signals are kept for explainability.
func Fuse(rooms map[string][]domain.Signal, state domain.HomeAwayState, computedAt time.Time) []domain.FusionResult {
	results := make([]domain.FusionResult, 0, len(rooms))

	for room, sigs := range rooms {
		weights := make([]float64, len(sigs))
		for i, s := range sigs {
			weights[i] = s.Weight
		}

		p := domain.CombineWeights(weights)
		if state == domain.StateAway {
			p = 0
		}

		results = append(results, domain.FusionResult{
			Room:        room,
			Probability: p,
			Signals:     sigs,
			ComputedAt:  computedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Room < results[j].Room })
	return results
}
