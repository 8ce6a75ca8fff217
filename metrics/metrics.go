// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package metrics instruments the simulation step loop with Prometheus
// counters/histograms/gauges: step duration, active/inactive body counts,
// solver iteration count, and pool grow events. Never read or written on
// the per-constraint hot path — the simulation updates these once per
// step, after a batch of constraints has already been solved.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds every metric the simulation reports. Build it once at
// startup with New, which registers every metric with the given
// prometheus.Registerer; its fields are cheap enough to update every frame.
type Recorder struct {
	StepDuration    prometheus.Histogram
	ActiveBodies    prometheus.Gauge
	InactiveBodies  prometheus.Gauge
	SolverIterations prometheus.Counter
	PoolGrows       *prometheus.CounterVec
}

// New creates a Recorder and registers its metrics with reg. Pass
// prometheus.DefaultRegisterer to use the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		StepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "physx",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of one simulation step.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveBodies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "physx",
			Name:      "active_bodies",
			Help:      "Number of bodies currently in the active set.",
		}),
		InactiveBodies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "physx",
			Name:      "inactive_bodies",
			Help:      "Number of bodies currently asleep, across every inactive set.",
		}),
		SolverIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "physx",
			Name:      "solver_iterations_total",
			Help:      "Cumulative count of solver iterate passes run.",
		}),
		PoolGrows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physx",
			Name:      "pool_grows_total",
			Help:      "Count of block allocations a size-bucketed pool has made, by bucket power.",
		}, []string{"power"}),
	}
}
