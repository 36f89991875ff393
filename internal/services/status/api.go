// Package status serves health, metrics and the latest cycle over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/controller"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/services/telemetry"
)

type ReportSource interface {
	LastReport() (controller.CycleReport, bool)
}

type Connectivity interface {
	Connected() bool
}

type WriteHealth interface {
	LastErrorAge() time.Duration
}

type WateringQuery interface {
	LatestWatering(ctx context.Context, minutes, limit int) ([]telemetry.Watering, error)
}

// Deps are the parts the handlers report on. Broker, Influx and Query may
// be nil when the process runs without them.
type Deps struct {
	Reports  ReportSource
	Broker   Connectivity
	Influx   WriteHealth
	Query    WateringQuery
	Gatherer prometheus.Gatherer

	// MinErrorAge is how long ago the last Influx write error must be for
	// /readyz to pass.
	MinErrorAge time.Duration
}

func NewHTTPMux(d Deps) *http.ServeMux {
	if d.MinErrorAge <= 0 {
		d.MinErrorAge = 30 * time.Second
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Ready           bool     `json:"ready"`
			BrokerConnected bool     `json:"broker_connected"`
			LastWriteErrorS *float64 `json:"last_write_error_age_sec,omitempty"`
		}
		out := resp{BrokerConnected: d.Broker == nil || d.Broker.Connected()}
		influxOK := true
		if d.Influx != nil {
			age := d.Influx.LastErrorAge()
			s := age.Seconds()
			out.LastWriteErrorS = &s
			influxOK = age > d.MinErrorAge
		}
		out.Ready = out.BrokerConnected && influxOK

		w.Header().Set("Content-Type", "application/json")
		if !out.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// GET /cycles/latest
	mux.HandleFunc("/cycles/latest", func(w http.ResponseWriter, _ *http.Request) {
		r, ok := d.Reports.LastReport()
		if !ok {
			http.Error(w, "no cycle has run yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r)
	})

	// GET /events/watering/latest?limit=20[&minutes=1440]
	mux.HandleFunc("/events/watering/latest", func(w http.ResponseWriter, r *http.Request) {
		minutes := queryInt(r, "minutes", 1440, 1, 7*24*60)
		limit := queryInt(r, "limit", 20, 1, 500)

		out := []telemetry.Watering{}
		if d.Query != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			list, err := d.Query.LatestWatering(ctx, minutes, limit)
			if err != nil {
				w.Header().Set("X-Error", "influx-query-error")
			}
			if list != nil {
				out = list
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	return mux
}

func queryInt(r *http.Request, k string, def, min, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
