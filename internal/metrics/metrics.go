// Package metrics exposes the Prometheus collectors shared by the store,
// exporter and HTTP layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "medula"

var (
	EventMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_mutations_total",
			Help:      "Store mutations by operation (add, remove, clear, seed).",
		},
		[]string{"op"},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Blob store writes that failed and were rolled back.",
		},
	)

	StoredEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_events",
			Help:      "Number of events currently held by the store.",
		},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ics_exports_total",
			Help:      "ICS documents produced, by kind (one, all, snapshot).",
		},
		[]string{"kind"},
	)

	ImportedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ics_imported_events_total",
			Help:      "Events created from imported ICS documents.",
		},
	)
)
