// Package estimator turns a crop's water need and a precipitation forecast
// into a watering duration.
package estimator

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
)

// ExpectedPrecipitation sums intensity*probability over the forecast.
func ExpectedPrecipitation(forecast model.Forecast) float64 {
	var total float64
	for _, s := range forecast {
		total += s.PrecipIntensity * s.PrecipProbability
	}
	return total
}

// NetNeed is the part of waterBudget the forecast is not expected to cover.
// It is never negative.
func NetNeed(waterBudget float64, forecast model.Forecast) (float64, error) {
	if math.IsNaN(waterBudget) || math.IsInf(waterBudget, 0) || waterBudget < 0 {
		return 0, fmt.Errorf("water budget %v: %w", waterBudget, model.ErrInvalidArgument)
	}
	if len(forecast) != model.ForecastHours {
		return 0, fmt.Errorf("forecast has %d samples, want %d: %w", len(forecast), model.ForecastHours, model.ErrDataIncomplete)
	}
	for i, s := range forecast {
		if err := checkSample(s); err != nil {
			return 0, fmt.Errorf("forecast hour %d: %w", i, err)
		}
	}
	return math.Max(0, waterBudget-ExpectedPrecipitation(forecast)), nil
}

// checkSample rejects intensities that are not finite and >= 0 and
// probabilities outside [0, 1].
func checkSample(s model.ForecastSample) error {
	if math.IsNaN(s.PrecipIntensity) || math.IsInf(s.PrecipIntensity, 0) || s.PrecipIntensity < 0 {
		return fmt.Errorf("precipitation intensity %v: %w", s.PrecipIntensity, model.ErrDataIncomplete)
	}
	if !(s.PrecipProbability >= 0 && s.PrecipProbability <= 1) {
		return fmt.Errorf("precipitation probability %v: %w", s.PrecipProbability, model.ErrDataIncomplete)
	}
	return nil
}

// EstimateDuration returns how many seconds the actuator must run to supply
// the net need at flowRatePerSecond.
func EstimateDuration(flowRatePerSecond, waterBudget float64, forecast model.Forecast) (float64, error) {
	if math.IsNaN(flowRatePerSecond) || flowRatePerSecond <= 0 {
		return 0, fmt.Errorf("flow rate %v: %w", flowRatePerSecond, model.ErrInvalidArgument)
	}
	need, err := NetNeed(waterBudget, forecast)
	if err != nil {
		return 0, err
	}
	return need / flowRatePerSecond, nil
}

// maxMillis is the longest time.Duration in whole milliseconds.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// Seconds converts an estimated duration to a time.Duration, rounded to the
// millisecond the device can honour. Durations past what time.Duration can
// hold saturate; NaN and non-positive values give 0.
func Seconds(s float64) time.Duration {
	if !(s > 0) {
		return 0
	}
	ms := math.Round(s * 1000)
	if ms >= float64(maxMillis) {
		return time.Duration(maxMillis) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
