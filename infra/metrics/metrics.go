package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the book builder's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	DeltasApplied  *prometheus.CounterVec
	DeltasRejected *prometheus.CounterVec
	LiveLevels     prometheus.Gauge
	RestingOrders  prometheus.Gauge
	LevelsRetired  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DeltasApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "levelbook_deltas_applied_total", Help: "Deltas applied to levels by kind"},
			[]string{"kind"},
		),
		DeltasRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "levelbook_deltas_rejected_total", Help: "Deltas rejected by kind and reason"},
			[]string{"kind", "reason"},
		),
		LiveLevels:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "levelbook_live_levels", Help: "Levels currently holding at least one order"}),
		RestingOrders: prometheus.NewGauge(prometheus.GaugeOpts{Name: "levelbook_resting_orders", Help: "Orders resting across all levels"}),
		LevelsRetired: prometheus.NewCounter(prometheus.CounterOpts{Name: "levelbook_levels_retired_total", Help: "Levels dropped after their last order left"}),
	}
	m.Registry.MustRegister(
		m.DeltasApplied, m.DeltasRejected, m.LiveLevels, m.RestingOrders, m.LevelsRetired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
