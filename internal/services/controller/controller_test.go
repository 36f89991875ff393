package controller_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/config"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/messages"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/device"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/farmapi"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
)

type fakeAPI struct {
	plants   []model.Plant
	plantErr error
	readings map[int]model.SensorReading
	tools    []farmapi.Tool
	seqs     []farmapi.Sequence
}

func (f *fakeAPI) Plants(context.Context, model.Session) ([]model.Plant, error) {
	return f.plants, f.plantErr
}

func (f *fakeAPI) LatestSensorReading(_ context.Context, _ model.Session, pin int) (model.SensorReading, error) {
	r, ok := f.readings[pin]
	if !ok {
		return model.SensorReading{}, farmapi.ErrNoReading
	}
	return r, nil
}

func (f *fakeAPI) Sequences(context.Context, model.Session) ([]farmapi.Sequence, error) {
	return f.seqs, nil
}

func (f *fakeAPI) Tools(context.Context, model.Session) ([]farmapi.Tool, error) {
	return f.tools, nil
}

type fakeWeather struct {
	forecast model.Forecast
	err      error
	entered  chan struct{}
	release  chan struct{}
}

func (f *fakeWeather) HourlyForecast(ctx context.Context, _, _ float64) (model.Forecast, error) {
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	return f.forecast, f.err
}

// rain returns a 12 hour forecast expecting total mm of rain.
func rain(total float64) model.Forecast {
	f := make(model.Forecast, model.ForecastHours)
	f[0] = model.ForecastSample{PrecipIntensity: total, PrecipProbability: 1}
	return f
}

func garden() []model.Plant {
	return []model.Plant{
		{ID: 11, Name: "Tomato", Slug: "tomato", X: 10, Y: 0},
		{ID: 12, Name: "Basil", Slug: "basil", X: 3, Y: 0},
		{ID: 13, Name: "Kale", Slug: "kale", X: 100, Y: 100},
	}
}

func farm() config.Farm {
	f := config.DefaultFarm()
	f.FlowRate = 2
	f.DefaultNeed = 4
	f.Crops = map[string]float64{"tomato": 12, "basil": 1}
	return f
}

func newController(t *testing.T, api *fakeAPI, w *fakeWeather, dev device.Device, f config.Farm, sink telemetry.Sink) *controller.Controller {
	t.Helper()
	c, err := controller.New(api, w, dev, model.Session{Token: "t", DeviceID: "device_42"}, controller.Options{Farm: f, Sink: sink})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func count(kinds []string, kind string) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestRunCycle(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	metrics := telemetry.NewMetrics()
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: rain(1)}, rec, farm(), metrics)

	r, err := c.RunCycle(context.Background())
	is.NoErr(err)
	is.Equal(r.Tour, model.Tour{1, 0, 2})
	is.Equal(r.ExpectedRain, 1.0)
	is.True(r.ID != "")
	is.True(!r.Skipped)

	is.Equal(len(r.Plants), 3)
	// basil needs 1, rain covers it
	is.Equal(r.Plants[0].PlantID, 12)
	is.Equal(r.Plants[0].Seconds, 0.0)
	is.True(!r.Plants[0].Watered)
	// tomato: (12-1)/2
	is.Equal(r.Plants[1].PlantID, 11)
	is.Equal(r.Plants[1].Seconds, 5.5)
	is.True(r.Plants[1].Watered)
	// kale falls back to the default need: (4-1)/2
	is.Equal(r.Plants[2].Seconds, 1.5)

	kinds := rec.Kinds()
	is.Equal(kinds[0], messages.KindExecute)
	is.Equal(kinds[len(kinds)-1], messages.KindExecute)
	is.Equal(count(kinds, messages.KindMoveAbsolute), 3)
	is.Equal(count(kinds, messages.KindWritePin), 4)
	is.Equal(count(kinds, "wait"), 2)

	cmds := rec.Commands()
	is.Equal(cmds[0].Args["sequence_id"], 24863)
	is.Equal(cmds[0].Args["tool_id"], 7041)
	is.Equal(cmds[len(cmds)-1].Args["sequence_id"], 24867)
	is.Equal(cmds[1].Args["x"], 3.0)

	is.Equal(testutil.ToFloat64(metrics.PlantsWatered), 2.0)
	is.Equal(testutil.ToFloat64(metrics.WateringSeconds), 7.0)
	is.Equal(testutil.ToFloat64(metrics.Cycles.WithLabelValues("ok")), 1.0)

	last, ok := c.LastReport()
	is.True(ok)
	is.Equal(last.ID, r.ID)
}

func TestRunCycleNoPlants(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	w := &fakeWeather{err: errors.New("not called")}
	c := newController(t, &fakeAPI{}, w, rec, farm(), nil)

	r, err := c.RunCycle(context.Background())
	is.NoErr(err)
	is.Equal(len(r.Tour), 0)
	is.Equal(len(rec.Kinds()), 0)
}

func TestRunCycleForecastError(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: rain(1)[:11]}, rec, farm(), nil)
	c2 := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{err: model.ErrDataIncomplete}, rec, farm(), nil)
	negative := rain(0)
	negative[3].PrecipIntensity = -5
	c3 := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: negative}, rec, farm(), nil)

	for _, ctrl := range []*controller.Controller{c, c2, c3} {
		r, err := ctrl.RunCycle(context.Background())
		is.True(errors.Is(err, model.ErrDataIncomplete))
		is.True(r.Error != "")
	}
	is.Equal(len(rec.Kinds()), 0) // nothing mounted
}

func TestRunCyclePlantWithoutPosition(t *testing.T) {
	is := is.New(t)
	api := &fakeAPI{plantErr: model.ErrDataIncomplete}
	_, err := newController(t, api, &fakeWeather{forecast: rain(0)}, device.NewRecorder(), farm(), nil).RunCycle(context.Background())
	is.True(errors.Is(err, model.ErrDataIncomplete))
}

func TestRunCycleUnmountsAfterFailure(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	boom := errors.New("motor stall")
	rec.FailOn(messages.KindMoveAbsolute, boom)
	metrics := telemetry.NewMetrics()
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: rain(0)}, rec, farm(), metrics)

	r, err := c.RunCycle(context.Background())
	is.True(errors.Is(err, boom))
	is.Equal(rec.Kinds(), []string{messages.KindExecute, messages.KindMoveAbsolute, messages.KindExecute})
	is.Equal(len(r.Plants), 1)
	is.Equal(testutil.ToFloat64(metrics.Cycles.WithLabelValues("failed")), 1.0)
}

func TestRunCycleMountFailure(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	boom := errors.New("no tool in slot")
	rec.FailOn(messages.KindExecute, boom)
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: rain(0)}, rec, farm(), nil)

	_, err := c.RunCycle(context.Background())
	is.True(errors.Is(err, boom))
	is.Equal(rec.Kinds(), []string{messages.KindExecute, messages.KindExecute}) // mount, unmount
}

func TestRunCycleCancelled(t *testing.T) {
	is := is.New(t)
	rec := device.NewRecorder()
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{forecast: rain(0)}, rec, farm(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RunCycle(ctx)
	is.True(errors.Is(err, context.Canceled))

	kinds := rec.Kinds()
	is.Equal(kinds[len(kinds)-1], messages.KindExecute) // unmounted anyway
}

func TestSoilSkip(t *testing.T) {
	is := is.New(t)
	f := farm()
	f.SoilSkipAbove = 500
	api := &fakeAPI{plants: garden(), readings: map[int]model.SensorReading{59: {Pin: 59, Value: 612}}}
	rec := device.NewRecorder()
	metrics := telemetry.NewMetrics()
	c := newController(t, api, &fakeWeather{forecast: rain(0)}, rec, f, metrics)

	r, err := c.RunCycle(context.Background())
	is.NoErr(err)
	is.True(r.Skipped)
	is.Equal(*r.SoilReading, 612.0)
	is.Equal(rec.Kinds(), []string{messages.KindReadPin})
	is.Equal(testutil.ToFloat64(metrics.Cycles.WithLabelValues("skipped")), 1.0)

	// dry soil: waters as usual
	api.readings[59] = model.SensorReading{Pin: 59, Value: 300}
	r, err = c.RunCycle(context.Background())
	is.NoErr(err)
	is.True(!r.Skipped)

	// no reading at all: waters as usual
	delete(api.readings, 59)
	r, err = c.RunCycle(context.Background())
	is.NoErr(err)
	is.True(!r.Skipped)
	is.True(r.SoilReading == nil)
}

func TestCycleInProgress(t *testing.T) {
	is := is.New(t)
	w := &fakeWeather{forecast: rain(0), entered: make(chan struct{}), release: make(chan struct{})}
	c := newController(t, &fakeAPI{plants: garden()}, w, device.NewRecorder(), farm(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.RunCycle(context.Background())
		done <- err
	}()
	<-w.entered

	_, err := c.RunCycle(context.Background())
	is.True(errors.Is(err, controller.ErrCycleInProgress))

	close(w.release)
	is.NoErr(<-done)
}

func TestPlan(t *testing.T) {
	is := is.New(t)
	c := newController(t, &fakeAPI{plants: garden()}, &fakeWeather{}, device.NewRecorder(), farm(), nil)

	plants, legs, err := c.Plan(context.Background())
	is.NoErr(err)
	is.Equal(len(plants), 3)
	is.Equal(len(legs), 3)
	is.Equal(legs[0].Plant.ID, 12)
	is.Equal(legs[0].Distance, 3.0)
	is.Equal(legs[1].Distance, 7.0)
}

func TestPreflight(t *testing.T) {
	is := is.New(t)
	api := &fakeAPI{
		tools: []farmapi.Tool{{ID: 7041}},
		seqs:  []farmapi.Sequence{{ID: 24863}, {ID: 24867}},
	}
	c := newController(t, api, &fakeWeather{}, device.NewRecorder(), farm(), nil)
	is.NoErr(c.Preflight(context.Background()))

	api.seqs = api.seqs[:1]
	api.tools = nil
	err := c.Preflight(context.Background())
	is.True(err != nil)
}

func TestNewRejectsBadFarm(t *testing.T) {
	is := is.New(t)
	f := farm()
	f.FlowRate = 0
	_, err := controller.New(&fakeAPI{}, &fakeWeather{}, device.NewRecorder(), model.Session{}, controller.Options{Farm: f})
	is.True(err != nil)
}
