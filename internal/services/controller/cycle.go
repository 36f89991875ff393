package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/estimator"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/planner"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/device"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/farmapi"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
)

// unmountTimeout bounds the unmount sequence run after a cancelled cycle.
const unmountTimeout = 3 * time.Minute

// PlantResult is what happened to one plant of the tour.
type PlantResult struct {
	PlantID int     `json:"plant_id"`
	Name    string  `json:"name,omitempty"`
	Slug    string  `json:"openfarm_slug,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Need    float64 `json:"need"`
	Seconds float64 `json:"seconds"`
	Watered bool    `json:"watered"`
}

type CycleReport struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Tour         model.Tour    `json:"tour"`
	Plants       []PlantResult `json:"plants"`
	ExpectedRain float64       `json:"expected_rain"`
	SoilReading  *float64      `json:"soil_reading,omitempty"`
	Skipped      bool          `json:"skipped"`
	SkipReason   string        `json:"skip_reason,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// RunCycle waters every plant once, in tour order. Only one cycle runs at
// a time; a concurrent call gets ErrCycleInProgress. The tool is unmounted
// whenever it was mounted, even when a later step fails or ctx ends.
func (c *Controller) RunCycle(ctx context.Context) (CycleReport, error) {
	if !c.cycleMu.TryLock() {
		return CycleReport{}, ErrCycleInProgress
	}
	defer c.cycleMu.Unlock()

	r := CycleReport{ID: newCycleID(), StartedAt: c.now()}
	c.emit(r.ID, telemetry.EventCycleStarted, 0, nil)
	L.Info("cycle started", "cycle", r.ID)

	err := c.run(ctx, &r)

	r.FinishedAt = c.now()
	switch {
	case err != nil:
		r.Error = err.Error()
		c.emit(r.ID, telemetry.EventCycleFailed, 0, map[string]any{"watered": int64(r.watered())})
		L.Error("cycle failed", "cycle", r.ID, "watered", r.watered(), "err", err)
	case r.Skipped:
		c.emit(r.ID, telemetry.EventCycleSkipped, 0, nil)
		L.Info("cycle skipped", "cycle", r.ID, "reason", r.SkipReason)
	default:
		c.emit(r.ID, telemetry.EventCycleFinished, 0, map[string]any{
			"watered":    int64(r.watered()),
			"duration_s": r.FinishedAt.Sub(r.StartedAt).Seconds(),
		})
		L.Info("cycle finished", "cycle", r.ID, "plants", len(r.Plants), "watered", r.watered())
	}
	c.setLast(r)
	return r, err
}

func (c *Controller) run(ctx context.Context, r *CycleReport) error {
	plants, legs, err := c.Plan(ctx)
	if err != nil {
		return err
	}
	r.Tour = make(model.Tour, len(legs))
	for i, leg := range legs {
		r.Tour[i] = leg.Index
	}
	L.Info("tour planned", "cycle", r.ID, "plants", len(plants), "length_mm", planner.Length(legs))
	if len(plants) == 0 {
		return nil
	}

	forecast, err := c.weather.HourlyForecast(ctx, c.lat, c.lon)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}
	// a forecast the estimator would refuse must fail before the tool is mounted
	if _, err := estimator.NetNeed(0, forecast); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	r.ExpectedRain = estimator.ExpectedPrecipitation(forecast)

	if reason := c.soilWetEnough(ctx, r); reason != "" {
		r.Skipped, r.SkipReason = true, reason
		return nil
	}

	if err := c.device.ExecSequence(ctx, c.farm.MountSequenceID, c.farm.ToolID); err != nil {
		// a failed mount may still have picked the tool up
		return errors.Join(fmt.Errorf("mount tool %d: %w", c.farm.ToolID, err), c.unmount(ctx))
	}

	err = c.waterTour(ctx, r, plants, forecast)
	return errors.Join(err, c.unmount(ctx))
}

func (c *Controller) waterTour(ctx context.Context, r *CycleReport, plants []model.Plant, forecast model.Forecast) error {
	for _, idx := range r.Tour {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := plants[idx]
		res := PlantResult{PlantID: p.ID, Name: p.Name, Slug: p.Slug, X: p.X, Y: p.Y, Need: c.farm.NeedFor(p.Slug)}

		if err := c.device.MoveAbsolute(ctx, p.X, p.Y, c.farm.Z); err != nil {
			r.Plants = append(r.Plants, res)
			return fmt.Errorf("move to plant %d: %w", p.ID, err)
		}

		secs, err := estimator.EstimateDuration(c.farm.FlowRate, res.Need, forecast)
		if err != nil {
			r.Plants = append(r.Plants, res)
			return fmt.Errorf("plant %d: %w", p.ID, err)
		}
		res.Seconds = secs

		if secs <= 0 {
			r.Plants = append(r.Plants, res)
			c.emit(r.ID, telemetry.EventPlantSkipped, p.ID, map[string]any{"x": p.X, "y": p.Y, "need": res.Need})
			L.Debug("plant needs no water", "plant", p.ID, "need", res.Need, "rain", r.ExpectedRain)
			continue
		}

		err = device.Water(ctx, c.device, c.farm.WaterPin, estimator.Seconds(secs))
		res.Watered = err == nil
		r.Plants = append(r.Plants, res)
		if err != nil {
			return fmt.Errorf("water plant %d: %w", p.ID, err)
		}
		c.emit(r.ID, telemetry.EventPlantWatered, p.ID, map[string]any{
			"duration_s": secs, "x": p.X, "y": p.Y, "need": res.Need,
		})
		L.Info("plant watered", "cycle", r.ID, "plant", p.ID, "seconds", secs)
	}
	return nil
}

// soilWetEnough asks the device for a fresh soil reading and returns a
// reason to skip the cycle if it is above the threshold. A failed check
// never blocks watering.
func (c *Controller) soilWetEnough(ctx context.Context, r *CycleReport) string {
	if c.farm.SoilSkipAbove <= 0 {
		return ""
	}
	if err := c.device.ReadPin(ctx, c.farm.SoilPin, model.PinModeAnalog); err != nil {
		L.Warn("soil read failed, watering anyway", "pin", c.farm.SoilPin, "err", err)
		return ""
	}
	reading, err := c.api.LatestSensorReading(ctx, c.session, c.farm.SoilPin)
	if errors.Is(err, farmapi.ErrNoReading) {
		L.Warn("no soil reading, watering anyway", "pin", c.farm.SoilPin)
		return ""
	}
	if err != nil {
		L.Warn("soil reading unavailable, watering anyway", "pin", c.farm.SoilPin, "err", err)
		return ""
	}
	v := reading.Value
	r.SoilReading = &v
	if v > c.farm.SoilSkipAbove {
		return fmt.Sprintf("soil reading %.0f above %.0f", v, c.farm.SoilSkipAbove)
	}
	return ""
}

func (c *Controller) unmount(ctx context.Context) error {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unmountTimeout)
	defer cancel()
	if err := c.device.ExecSequence(uctx, c.farm.UnmountSequenceID, c.farm.ToolID); err != nil {
		return fmt.Errorf("unmount tool %d: %w", c.farm.ToolID, err)
	}
	return nil
}

func (c *Controller) emit(cycleID, kind string, plantID int, fields map[string]any) {
	c.sink.Record(telemetry.Event{
		Type:      kind,
		CycleID:   cycleID,
		PlantID:   plantID,
		Fields:    fields,
		Timestamp: c.now(),
	})
}

func (r CycleReport) watered() int {
	n := 0
	for _, p := range r.Plants {
		if p.Watered {
			n++
		}
	}
	return n
}
