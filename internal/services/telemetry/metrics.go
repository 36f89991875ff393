package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors, registered on their own
// registry. It is also a Sink, so cycle events drive the counters.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles          *prometheus.CounterVec
	PlantsWatered   prometheus.Counter
	WateringSeconds prometheus.Counter
	LastCycle       prometheus.Gauge
	RPCDuration     *prometheus.HistogramVec
	RPCErrors       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmwater",
			Name:      "cycles_total",
			Help:      "Watering cycles by outcome.",
		}, []string{"result"}),
		PlantsWatered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmwater",
			Name:      "plants_watered_total",
			Help:      "Plants the valve was opened for.",
		}),
		WateringSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmwater",
			Name:      "watering_seconds_total",
			Help:      "Time the valve was open.",
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "farmwater",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle ended.",
		}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farmwater",
			Name:      "device_rpc_duration_seconds",
			Help:      "Time from rpc_request to reply.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		RPCErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmwater",
			Name:      "device_rpc_errors_total",
			Help:      "RPCs that failed or timed out.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Cycles, m.PlantsWatered, m.WateringSeconds, m.LastCycle, m.RPCDuration, m.RPCErrors,
	)
	return m
}

// ObserveRPC matches device.Observer.
func (m *Metrics) ObserveRPC(kind string, elapsed time.Duration, err error) {
	m.RPCDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Record(evt Event) {
	switch evt.Type {
	case EventPlantWatered:
		m.PlantsWatered.Inc()
		if s, ok := evt.Fields["duration_s"].(float64); ok {
			m.WateringSeconds.Add(s)
		}
	case EventCycleFinished:
		m.Cycles.WithLabelValues("ok").Inc()
		m.LastCycle.SetToCurrentTime()
	case EventCycleSkipped:
		m.Cycles.WithLabelValues("skipped").Inc()
		m.LastCycle.SetToCurrentTime()
	case EventCycleFailed:
		m.Cycles.WithLabelValues("failed").Inc()
		m.LastCycle.SetToCurrentTime()
	}
}
