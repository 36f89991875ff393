// Package telemetry records what watering cycles did, to InfluxDB and to
// Prometheus.
package telemetry

import (
	"time"

	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

var L = logging.Logger

const (
	EventCycleStarted  = "cycle.started"
	EventCycleFinished = "cycle.finished"
	EventCycleSkipped  = "cycle.skipped"
	EventCycleFailed   = "cycle.failed"
	EventPlantWatered  = "plant.watered"
	EventPlantSkipped  = "plant.skipped"
)

// Event is one thing that happened during a cycle. Fields carries the
// numeric details (duration_s, x, y, need, ...).
type Event struct {
	Type      string
	CycleID   string
	PlantID   int
	Fields    map[string]any
	Timestamp time.Time
}

// Sink receives events. Record must not block the cycle.
type Sink interface {
	Record(evt Event)
}

type NopSink struct{}

func (NopSink) Record(Event) {}

type multiSink []Sink

func (m multiSink) Record(evt Event) {
	for _, s := range m {
		s.Record(evt)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
