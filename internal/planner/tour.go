// Package planner orders plants into a watering tour.
//
// The tour is built greedily: starting from the device origin, the next
// plant is always the closest one not yet visited. Plant counts are garden
// sized, so the quadratic cost is not a concern.
package planner

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
)

// PlanTour returns the visiting order of plants as indices into plants.
//
// A candidate sitting exactly on the current position is never picked
// while a farther one remains; if only such candidates are left, the first
// of them in input order is taken. An empty input yields an empty tour.
func PlanTour(plants []model.Plant) (model.Tour, error) {
	for i, p := range plants {
		if !p.HasPosition() {
			return nil, fmt.Errorf("plant %d at index %d: %w", p.ID, i, model.ErrDataIncomplete)
		}
	}

	remaining := make([]int, len(plants))
	for i := range remaining {
		remaining[i] = i
	}

	tour := make(model.Tour, 0, len(plants))
	cx, cy := 0.0, 0.0
	for len(remaining) > 0 {
		k := nearest(plants, remaining, cx, cy)
		idx := remaining[k]
		tour = append(tour, idx)
		remaining = append(remaining[:k], remaining[k+1:]...)
		cx, cy = plants[idx].X, plants[idx].Y
	}
	return tour, nil
}

// nearest returns the position in remaining of the closest candidate at a
// nonzero distance from (cx, cy). Ties go to the earlier candidate.
func nearest(plants []model.Plant, remaining []int, cx, cy float64) int {
	best, bestDist := 0, math.Inf(1)
	for k, idx := range remaining {
		d := Distance(cx, cy, plants[idx].X, plants[idx].Y)
		if d == 0 {
			continue
		}
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// Distance is the Euclidean distance between (x1, y1) and (x2, y2).
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
