// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label of snipr_runs_total.
const (
	OutcomeCompleted     = "completed"
	OutcomeCancelled     = "cancelled"
	OutcomeFailedToStart = "failed_to_start"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	outputBytes *prometheus.CounterVec
	rejected    prometheus.Counter
	running     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snipr_runs_total",
				Help: "Finished runs by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snipr_run_duration_seconds",
				Help:    "Wall time from spawn to observed exit.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		outputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snipr_output_bytes_total",
				Help: "Bytes read from child processes by stream.",
			},
			[]string{"stream"},
		),
		rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snipr_rejected_runs_total",
				Help: "Run requests rejected because a run was in progress.",
			},
		),
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snipr_run_in_progress",
				Help: "1 while a run is in progress.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.outputBytes, m.rejected, m.running)
	}
	return m
}

func (m *Metrics) observeFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailedToStart {
		m.duration.Observe(seconds)
	}
}

func (m *Metrics) addOutput(s Stream, n int) {
	if m == nil {
		return
	}
	m.outputBytes.WithLabelValues(s.String()).Add(float64(n))
}

func (m *Metrics) rejectedRun() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *Metrics) setRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}
