package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesLoaded counts pages whose items were appended, by mode
	PagesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pages_loaded_total",
			Help: "Total number of pages appended to the accumulated list",
		},
		[]string{"mode"}, // "sequential", "search"
	)

	// PartitionsExhausted counts partitions finished during sequential traversal
	PartitionsExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_partitions_exhausted_total",
			Help: "Total number of partitions traversed to exhaustion",
		},
	)

	// StaleCompletions counts fetch completions discarded after a mode switch
	StaleCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_stale_completions_total",
			Help: "Total number of fetch completions discarded as stale",
		},
	)

	// LoadErrors counts failed loads by mode
	LoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_load_errors_total",
			Help: "Total number of failed page loads",
		},
		[]string{"mode"},
	)

	// AccumulatedItems is the current length of the accumulated list
	AccumulatedItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_accumulated_items",
			Help: "Number of cards in the accumulated list",
		},
	)
)
