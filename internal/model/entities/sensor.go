package entities

import "time"

// PinMode values used by read_pin / write_pin.
const (
	PinModeDigital = 0
	PinModeAnalog  = 1
)

// SensorReading is a record of GET /api/sensor_readings.
type SensorReading struct {
	ID        int       `json:"id"`
	Pin       int       `json:"pin"`
	Mode      int       `json:"mode"`
	Value     float64   `json:"value"`
	X         *float64  `json:"x"`
	Y         *float64  `json:"y"`
	Z         *float64  `json:"z"`
	CreatedAt time.Time `json:"created_at"`
}
