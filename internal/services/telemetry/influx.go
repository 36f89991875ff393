package telemetry

import (
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is where every event point is written.
const Measurement = "watering_event"

// pointWriter is the part of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}

// InfluxSink writes events with the non-blocking WriteAPI and remembers
// when the last write failed, for /readyz.
type InfluxSink struct {
	api     pointWriter
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewInfluxSink(w pointWriter) *InfluxSink {
	s := &InfluxSink{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				s.mu.Lock()
				s.lastErr = time.Now()
				s.mu.Unlock()
				L.Error("influx write error", "err", err)
			}
		}
	}()
	return s
}

func (s *InfluxSink) Record(evt Event) {
	s.api.WritePoint(EventToPoint(evt))
	s.mu.Lock()
	s.counts[evt.Type]++
	s.mu.Unlock()
}

// Flush sends buffered points; call it before exiting.
func (s *InfluxSink) Flush() { s.api.Flush() }

// LastErrorAge is the time since the last failed write.
func (s *InfluxSink) LastErrorAge() time.Duration {
	if s == nil {
		return 99999 * time.Hour
	}
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}

// Count is how many events of type were recorded since start.
func (s *InfluxSink) Count(eventType string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[eventType]
}

// EventToPoint maps an event to a watering_event point.
func EventToPoint(evt Event) *write.Point {
	tags := map[string]string{"event_type": evt.Type}
	if evt.CycleID != "" {
		tags["cycle_id"] = evt.CycleID
	}
	if evt.PlantID != 0 {
		tags["plant_id"] = strconv.Itoa(evt.PlantID)
	}

	fields := make(map[string]interface{}, len(evt.Fields)+1)
	for k, v := range evt.Fields {
		fields[k] = v
	}
	// a point needs at least one field
	if _, ok := fields["count"]; !ok {
		fields["count"] = int64(1)
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(Measurement, tags, fields, ts)
}
