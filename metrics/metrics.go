// Package metrics counts check outcomes and store writes for a single run
// and writes them in the Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeWrites *prometheus.CounterVec
	lastRun     prometheus.Gauge
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serpcheck_check_outcomes_total",
				Help: "Terminal outcomes of check executions",
			},
			[]string{"check", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "serpcheck_check_duration_seconds",
				Help:    "Duration of check executions",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"check"},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serpcheck_store_writes_total",
				Help: "Result inserts per store, by result",
			},
			[]string{"store", "result"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "serpcheck_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
	m.registry.MustRegister(m.outcomes, m.duration, m.storeWrites, m.lastRun)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCheck records a terminal check outcome.
func (m *Metrics) ObserveCheck(check, outcome string, d time.Duration) {
	m.outcomes.WithLabelValues(check, outcome).Inc()
	m.duration.WithLabelValues(check).Observe(d.Seconds())
}

// ObserveStoreWrite records one insert attempt.
func (m *Metrics) ObserveStoreWrite(store string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.storeWrites.WithLabelValues(store, result).Inc()
}

// WriteFile stamps the run end time and writes every collector to path in
// the node exporter textfile format.
func (m *Metrics) WriteFile(path string) error {
	m.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
