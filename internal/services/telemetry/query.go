package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Watering is one plant.watered event read back from InfluxDB.
type Watering struct {
	CycleID string  `json:"cycle_id,omitempty"`
	PlantID string  `json:"plant_id,omitempty"`
	Seconds float64 `json:"seconds"`
	Time    string  `json:"time"`
}

type Querier struct {
	client influxdb2.Client
	org    string
	bucket string
}

func NewQuerier(client influxdb2.Client, org, bucket string) *Querier {
	return &Querier{client: client, org: org, bucket: bucket}
}

func BuildFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q)
  |> filter(fn: (r) => r._field == "duration_s")
  |> keep(columns: ["_time","_value","plant_id","cycle_id"])
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, Measurement, EventPlantWatered, limit)
}

// LatestWatering returns the newest waterings of the last minutes, newest
// first.
func (q *Querier) LatestWatering(ctx context.Context, minutes, limit int) ([]Watering, error) {
	res, err := q.client.QueryAPI(q.org).Query(ctx, BuildFlux(q.bucket, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	out := make([]Watering, 0, limit)
	for res.Next() {
		rec := res.Record()
		out = append(out, Watering{
			CycleID: tagValue(rec.ValueByKey("cycle_id")),
			PlantID: tagValue(rec.ValueByKey("plant_id")),
			Seconds: toFloat(rec.Value()),
			Time:    rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if res.Err() != nil {
		return out, fmt.Errorf("influx iterate: %w", res.Err())
	}
	return out, nil
}

func tagValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
