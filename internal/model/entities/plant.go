package entities

import (
	"fmt"
	"math"
)

// PointerTypePlant is the pointer_type the web app uses for living plants.
// Other point kinds (GenericPointer, Weed, ToolSlot) are not watered.
const PointerTypePlant = "Plant"

// Point is a record of GET /api/points. Position fields are pointers so
// that a record without coordinates can be told apart from one at 0.
type Point struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	PointerType  string   `json:"pointer_type"`
	X            *float64 `json:"x"`
	Y            *float64 `json:"y"`
	Z            *float64 `json:"z"`
	OpenfarmSlug string   `json:"openfarm_slug,omitempty"`
}

// Plant is a point selected for watering, with its position in device mm.
type Plant struct {
	ID   int     `json:"id"`
	Name string  `json:"name,omitempty"`
	Slug string  `json:"openfarm_slug,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// HasPosition reports whether both coordinates are finite numbers.
func (p Plant) HasPosition() bool {
	return finite(p.X) && finite(p.Y)
}

// Tour is a visiting order, expressed as indices into the plant slice it
// was planned from.
type Tour []int

// PlantSet keeps the points whose pointer_type is Plant, in the order the
// web app returned them. A plant without x or y makes the whole set
// unusable and is reported as an error.
func PlantSet(points []Point) ([]Plant, error) {
	out := make([]Plant, 0, len(points))
	for _, p := range points {
		if p.PointerType != PointerTypePlant {
			continue
		}
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("plant %d (%s) has no position: %w", p.ID, p.Name, ErrDataIncomplete)
		}
		out = append(out, Plant{ID: p.ID, Name: p.Name, Slug: p.OpenfarmSlug, X: *p.X, Y: *p.Y})
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
