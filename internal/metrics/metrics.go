// Package metrics exposes Prometheus instrumentation for optimization runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tarnmoor/ASPEN/internal/optimization"
)

// Metrics holds the collectors updated by the run scheduler.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	IterationsTotal prometheus.Counter
	StateSolves     prometheus.Counter
	AdjointSolves   prometheus.Counter
	RunDuration     prometheus.Histogram
}

// New registers the collectors with the given registerer and returns them.
// Passing prometheus.DefaultRegisterer wires them into the default /metrics
// endpoint.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aspen",
			Name:      "runs_total",
			Help:      "Optimization runs by terminal status.",
		}, []string{"status"}),
		IterationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aspen",
			Name:      "iterations_total",
			Help:      "Outer optimization iterations across all runs.",
		}),
		StateSolves: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aspen",
			Name:      "state_solves_total",
			Help:      "State equation solves across all runs.",
		}),
		AdjointSolves: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aspen",
			Name:      "adjoint_solves_total",
			Help:      "Adjoint equation solves across all runs.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aspen",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of optimization runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// ObserveRun records the outcome of one finished run.
func (m *Metrics) ObserveRun(res *optimization.Result, seconds float64) {
	m.RunsTotal.WithLabelValues(res.Status.String()).Inc()
	m.IterationsTotal.Add(float64(res.Iterations))
	m.StateSolves.Add(float64(res.StateSolves))
	m.AdjointSolves.Add(float64(res.AdjointSolves))
	m.RunDuration.Observe(seconds)
}

// ObserveFailure records a run that ended in a hard error.
func (m *Metrics) ObserveFailure(seconds float64) {
	m.RunsTotal.WithLabelValues("error").Inc()
	m.RunDuration.Observe(seconds)
}
