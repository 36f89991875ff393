// Package controller runs watering cycles: plan a tour over the garden's
// plants, then move to each one and water it for as long as the forecast
// leaves its need uncovered.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/config"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/planner"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/device"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/farmapi"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

var L = logging.Logger

// ErrCycleInProgress is returned by RunCycle while another cycle runs.
var ErrCycleInProgress = errors.New("watering cycle already in progress")

// FarmAPI is the part of the web app client a cycle needs.
type FarmAPI interface {
	Plants(ctx context.Context, s model.Session) ([]model.Plant, error)
	LatestSensorReading(ctx context.Context, s model.Session, pin int) (model.SensorReading, error)
	Sequences(ctx context.Context, s model.Session) ([]farmapi.Sequence, error)
	Tools(ctx context.Context, s model.Session) ([]farmapi.Tool, error)
}

// Forecaster returns the hourly precipitation forecast.
type Forecaster interface {
	HourlyForecast(ctx context.Context, lat, lon float64) (model.Forecast, error)
}

type Options struct {
	Farm      config.Farm
	Latitude  float64
	Longitude float64
	Sink      telemetry.Sink
}

type Controller struct {
	api     FarmAPI
	weather Forecaster
	device  device.Device
	session model.Session
	farm    config.Farm
	lat     float64
	lon     float64
	sink    telemetry.Sink
	now     func() time.Time

	// held for the whole cycle
	cycleMu sync.Mutex

	lastMu sync.RWMutex
	last   *CycleReport
}

func New(api FarmAPI, weather Forecaster, dev device.Device, session model.Session, opts Options) (*Controller, error) {
	if api == nil {
		return nil, errors.New("farm api client is nil")
	}
	if weather == nil {
		return nil, errors.New("weather client is nil")
	}
	if dev == nil {
		return nil, errors.New("device is nil")
	}
	if err := opts.Farm.Validate(); err != nil {
		return nil, fmt.Errorf("farm config: %w", err)
	}
	sink := opts.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Controller{
		api:     api,
		weather: weather,
		device:  dev,
		session: session,
		farm:    opts.Farm,
		lat:     opts.Latitude,
		lon:     opts.Longitude,
		sink:    sink,
		now:     time.Now,
	}, nil
}

// Plan fetches the plants and returns the tour over them, leg by leg.
func (c *Controller) Plan(ctx context.Context) ([]model.Plant, []planner.Leg, error) {
	plants, err := c.api.Plants(ctx, c.session)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch plants: %w", err)
	}
	tour, err := planner.PlanTour(plants)
	if err != nil {
		return nil, nil, fmt.Errorf("plan tour: %w", err)
	}
	return plants, planner.Legs(plants, tour), nil
}

// Preflight checks that the configured watering tool and its mount and
// unmount sequences exist on the web app.
func (c *Controller) Preflight(ctx context.Context) error {
	tools, err := c.api.Tools(ctx, c.session)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	seqs, err := c.api.Sequences(ctx, c.session)
	if err != nil {
		return fmt.Errorf("list sequences: %w", err)
	}

	var errs []error
	if !hasTool(tools, c.farm.ToolID) {
		errs = append(errs, fmt.Errorf("tool %d not found", c.farm.ToolID))
	}
	for _, id := range []int{c.farm.MountSequenceID, c.farm.UnmountSequenceID} {
		if !hasSequence(seqs, id) {
			errs = append(errs, fmt.Errorf("sequence %d not found", id))
		}
	}
	return errors.Join(errs...)
}

// LastReport returns the report of the most recent cycle, if any ran.
func (c *Controller) LastReport() (CycleReport, bool) {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	if c.last == nil {
		return CycleReport{}, false
	}
	return *c.last, true
}

func (c *Controller) setLast(r CycleReport) {
	c.lastMu.Lock()
	c.last = &r
	c.lastMu.Unlock()
}

func hasTool(tools []farmapi.Tool, id int) bool {
	for _, t := range tools {
		if t.ID == id {
			return true
		}
	}
	return false
}

func hasSequence(seqs []farmapi.Sequence, id int) bool {
	for _, s := range seqs {
		if s.ID == id {
			return true
		}
	}
	return false
}

func newCycleID() string { return uuid.NewString() }
