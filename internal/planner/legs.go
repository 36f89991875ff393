package planner

import "github.com/LeonardoBeccarini/farmbot-watering/internal/model"

// Leg is one move of a tour.
type Leg struct {
	Step     int         `json:"step"`
	Index    int         `json:"index"`
	Plant    model.Plant `json:"plant"`
	Distance float64     `json:"distance_mm"`
}

// Legs expands a tour into its moves, starting from the origin.
// The tour must have been planned from plants.
func Legs(plants []model.Plant, tour model.Tour) []Leg {
	legs := make([]Leg, 0, len(tour))
	cx, cy := 0.0, 0.0
	for step, idx := range tour {
		p := plants[idx]
		legs = append(legs, Leg{Step: step, Index: idx, Plant: p, Distance: Distance(cx, cy, p.X, p.Y)})
		cx, cy = p.X, p.Y
	}
	return legs
}

// Length is the total travel of legs in mm.
func Length(legs []Leg) float64 {
	var sum float64
	for _, l := range legs {
		sum += l.Distance
	}
	return sum
}
