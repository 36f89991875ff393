package estimator_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/estimator"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
)

// forecastWith returns a 12 hour forecast whose first len(samples) hours are
// given as {intensity, probability} pairs and the rest are dry.
func forecastWith(samples ...[2]float64) model.Forecast {
	f := make(model.Forecast, model.ForecastHours)
	for i, s := range samples {
		f[i] = model.ForecastSample{PrecipIntensity: s[0], PrecipProbability: s[1]}
	}
	return f
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name     string
		flow     float64
		budget   float64
		forecast model.Forecast
		want     float64
	}{
		{"partly covered by rain", 1.0, 10.0, forecastWith([2]float64{2, 0.5}, [2]float64{2, 0.5}, [2]float64{2, 0.5}, [2]float64{2, 0.5}), 6.0},
		{"rain exceeds need", 1.0, 2.0, forecastWith([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}), 0.0},
		{"dry forecast", 2.0, 10.0, forecastWith(), 5.0},
		{"zero budget", 1.0, 0.0, forecastWith(), 0.0},
		{"rain exactly covers need", 0.5, 3.0, forecastWith([2]float64{3, 1}), 0.0},
		{"improbable rain", 4.0, 8.0, forecastWith([2]float64{40, 0}), 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := estimator.EstimateDuration(tt.flow, tt.budget, tt.forecast)
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}

func TestEstimateDurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		flow     float64
		budget   float64
		forecast model.Forecast
		want     error
	}{
		{"zero flow", 0, 10, forecastWith(), model.ErrInvalidArgument},
		{"negative flow", -1, 10, forecastWith(), model.ErrInvalidArgument},
		{"NaN flow", math.NaN(), 10, forecastWith(), model.ErrInvalidArgument},
		{"negative budget", 1, -0.1, forecastWith(), model.ErrInvalidArgument},
		{"eleven samples", 1, 10, forecastWith()[:11], model.ErrDataIncomplete},
		{"thirteen samples", 1, 10, append(forecastWith(), model.ForecastSample{}), model.ErrDataIncomplete},
		{"no forecast", 1, 10, nil, model.ErrDataIncomplete},
		{"infinite budget", 1, math.Inf(1), forecastWith(), model.ErrInvalidArgument},
		{"NaN intensity", 1, 10, forecastWith([2]float64{math.NaN(), 0.5}), model.ErrDataIncomplete},
		{"infinite intensity", 1, 10, forecastWith([2]float64{math.Inf(1), 0.5}), model.ErrDataIncomplete},
		{"negative intensity", 1, 10, forecastWith([2]float64{-5, 1}), model.ErrDataIncomplete},
		{"probability above one", 1, 10, forecastWith([2]float64{5, 3}), model.ErrDataIncomplete},
		{"negative probability", 1, 10, forecastWith([2]float64{5, -0.1}), model.ErrDataIncomplete},
		{"NaN probability", 1, 10, forecastWith([2]float64{5, math.NaN()}), model.ErrDataIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := estimator.EstimateDuration(tt.flow, tt.budget, tt.forecast)
			is.True(errors.Is(err, tt.want))
			is.Equal(got, 0.0)
		})
	}
}

func TestExpectedPrecipitation(t *testing.T) {
	is := is.New(t)
	f := forecastWith([2]float64{1, 0.25}, [2]float64{0.5, 0.5}, [2]float64{2, 1})
	is.Equal(estimator.ExpectedPrecipitation(f), 2.5)
	is.Equal(estimator.ExpectedPrecipitation(nil), 0.0)
}

func TestSeconds(t *testing.T) {
	is := is.New(t)
	is.Equal(estimator.Seconds(6), 6*time.Second)
	is.Equal(estimator.Seconds(1.25), 1250*time.Millisecond)
	is.Equal(estimator.Seconds(0), time.Duration(0))
	is.Equal(estimator.Seconds(-3), time.Duration(0))
	is.Equal(estimator.Seconds(math.NaN()), time.Duration(0))

	// too long for time.Duration: saturates instead of wrapping negative
	long := estimator.Seconds(1e10)
	is.True(long > 0)
	is.True(long > 100*365*24*time.Hour)
	is.Equal(estimator.Seconds(math.Inf(1)), long)
}
