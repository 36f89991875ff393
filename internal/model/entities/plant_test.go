package entities_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/entities"
)

const pointsJSON = `[
	{"id": 11, "name": "Tomato", "pointer_type": "Plant", "x": 120, "y": 300, "z": 0, "openfarm_slug": "tomato"},
	{"id": 12, "name": "Marker", "pointer_type": "GenericPointer", "x": 10, "y": 10, "z": 0},
	{"id": 13, "name": "Weed", "pointer_type": "Weed", "x": 40, "y": 70, "z": 0},
	{"id": 14, "name": "Basil", "pointer_type": "Plant", "x": 0, "y": 0, "z": 0, "openfarm_slug": "basil"}
]`

func TestPlantSet(t *testing.T) {
	is := is.New(t)
	var points []entities.Point
	is.NoErr(json.Unmarshal([]byte(pointsJSON), &points))

	plants, err := entities.PlantSet(points)
	is.NoErr(err)
	is.Equal(len(plants), 2)
	is.Equal(plants[0], entities.Plant{ID: 11, Name: "Tomato", Slug: "tomato", X: 120, Y: 300})
	is.Equal(plants[1].ID, 14) // a plant at the origin is still a plant
	is.True(plants[1].HasPosition())
}

func TestPlantSetMissingPosition(t *testing.T) {
	is := is.New(t)
	var points []entities.Point
	is.NoErr(json.Unmarshal([]byte(`[{"id": 3, "name": "Pepper", "pointer_type": "Plant", "x": 12, "y": null}]`), &points))

	_, err := entities.PlantSet(points)
	is.True(errors.Is(err, entities.ErrDataIncomplete))
}

func TestPlantSetIgnoresPositionOfOtherPoints(t *testing.T) {
	is := is.New(t)
	var points []entities.Point
	is.NoErr(json.Unmarshal([]byte(`[{"id": 5, "pointer_type": "ToolSlot"}]`), &points))

	plants, err := entities.PlantSet(points)
	is.NoErr(err)
	is.Equal(len(plants), 0)
}
