package entities

import "time"

// ForecastHours is the horizon covered by a Forecast, in hourly samples.
const ForecastHours = 12

// ForecastSample is one hour bucket of a precipitation forecast.
type ForecastSample struct {
	Time              time.Time `json:"time"`
	PrecipIntensity   float64   `json:"precipIntensity"`   // rate, >= 0
	PrecipProbability float64   `json:"precipProbability"` // [0..1]
}

// Forecast is an ordered run of hourly samples starting at the current hour.
type Forecast []ForecastSample
