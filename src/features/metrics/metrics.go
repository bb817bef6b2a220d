package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as label values on RunsTotal.
const (
	OutcomeApplied   = "applied"
	OutcomeFailed    = "failed"
	OutcomeNoChanges = "no_changes"
)

var (
	// EventsObserved counts raw schema-file change events from the observer.
	EventsObserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemawatch_change_events_total",
		Help: "Number of schema file change events observed.",
	})

	// FlushesTotal counts debounce flushes, one per settled change burst.
	FlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemawatch_debounce_flushes_total",
		Help: "Number of debounce windows that fired.",
	})

	// RunsTotal counts completed migration runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schemawatch_migration_runs_total",
		Help: "Number of migration runs by outcome.",
	}, []string{"outcome"})

	// OrchestratorBusy is 1 while a migration run is in flight.
	OrchestratorBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schemawatch_orchestrator_busy",
		Help: "Whether a migration run is currently in progress.",
	})
)
