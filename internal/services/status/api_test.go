package status_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/status"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
)

type reports struct{ r *controller.CycleReport }

func (f reports) LastReport() (controller.CycleReport, bool) {
	if f.r == nil {
		return controller.CycleReport{}, false
	}
	return *f.r, true
}

type broker bool

func (b broker) Connected() bool { return bool(b) }

type influx time.Duration

func (i influx) LastErrorAge() time.Duration { return time.Duration(i) }

type query struct {
	list    []telemetry.Watering
	err     error
	minutes int
	limit   int
}

func (q *query) LatestWatering(_ context.Context, minutes, limit int) ([]telemetry.Watering, error) {
	q.minutes, q.limit = minutes, limit
	return q.list, q.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	is := is.New(t)
	rec := get(t, status.NewHTTPMux(status.Deps{Reports: reports{}}), "/healthz")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Body.String(), "ok")
}

func TestReadyz(t *testing.T) {
	cases := []struct {
		name string
		deps status.Deps
		want int
	}{
		{"dry run, nothing to check", status.Deps{}, http.StatusOK},
		{"broker up", status.Deps{Broker: broker(true), Influx: influx(time.Hour)}, http.StatusOK},
		{"broker down", status.Deps{Broker: broker(false)}, http.StatusServiceUnavailable},
		{"recent influx error", status.Deps{Broker: broker(true), Influx: influx(time.Second)}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			tc.deps.Reports = reports{}
			rec := get(t, status.NewHTTPMux(tc.deps), "/readyz")
			is.Equal(rec.Code, tc.want)
		})
	}
}

func TestCyclesLatest(t *testing.T) {
	is := is.New(t)
	rec := get(t, status.NewHTTPMux(status.Deps{Reports: reports{}}), "/cycles/latest")
	is.Equal(rec.Code, http.StatusNotFound)

	r := &controller.CycleReport{ID: "c1", Plants: []controller.PlantResult{{PlantID: 7, Seconds: 6, Watered: true}}}
	rec = get(t, status.NewHTTPMux(status.Deps{Reports: reports{r}}), "/cycles/latest")
	is.Equal(rec.Code, http.StatusOK)
	var got controller.CycleReport
	is.NoErr(json.NewDecoder(rec.Body).Decode(&got))
	is.Equal(got.ID, "c1")
	is.Equal(got.Plants[0].Seconds, 6.0)
}

func TestWateringLatest(t *testing.T) {
	is := is.New(t)
	rec := get(t, status.NewHTTPMux(status.Deps{Reports: reports{}}), "/events/watering/latest")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(strings.TrimSpace(rec.Body.String()), "[]")

	q := &query{list: []telemetry.Watering{{PlantID: "7", Seconds: 6, Time: "2024-05-01T12:00:00Z"}}}
	rec = get(t, status.NewHTTPMux(status.Deps{Reports: reports{}, Query: q}), "/events/watering/latest?limit=9999&minutes=60")
	is.Equal(q.limit, 500)
	is.Equal(q.minutes, 60)
	var got []telemetry.Watering
	is.NoErr(json.NewDecoder(rec.Body).Decode(&got))
	is.Equal(len(got), 1)

	q = &query{err: errors.New("influx down")}
	rec = get(t, status.NewHTTPMux(status.Deps{Reports: reports{}, Query: q}), "/events/watering/latest")
	is.Equal(rec.Header().Get("X-Error"), "influx-query-error")
	is.Equal(strings.TrimSpace(rec.Body.String()), "[]")
}

func TestMetrics(t *testing.T) {
	is := is.New(t)
	m := telemetry.NewMetrics()
	m.Record(telemetry.Event{Type: telemetry.EventCycleFinished})
	rec := get(t, status.NewHTTPMux(status.Deps{Reports: reports{}, Gatherer: m.Registry}), "/metrics")
	is.Equal(rec.Code, http.StatusOK)
	is.True(strings.Contains(rec.Body.String(), `farmwater_cycles_total{result="ok"} 1`))
}
