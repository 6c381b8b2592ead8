// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	harvestPagesTotal     *prometheus.CounterVec
	harvestEntitiesTotal  *prometheus.CounterVec
	registryLookupsTotal  *prometheus.CounterVec
	pacingDelaySeconds    prometheus.Histogram
	planClusterReductions prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		harvestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_pages_total",
				Help: "Pages fetched through the rendering backend, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		harvestEntitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_entities_total",
				Help: "Entities processed, labeled by outcome (extracted or skipped).",
			},
			[]string{"outcome"},
		)

		registryLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_registry_lookups_total",
				Help: "Registry enrichment lookups, labeled by result.",
			},
			[]string{"result"},
		)

		pacingDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvest_pacing_delay_seconds",
				Help:    "Histogram of pacing waits between entity scrapes.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		planClusterReductions = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvest_plan_labels_merged_total",
				Help: "Insurance plan labels merged away by near-duplicate normalization.",
			},
		)
	})
}

// ObservePage counts a rendered page fetch.
func ObservePage(kind, status string) {
	if harvestPagesTotal != nil {
		harvestPagesTotal.WithLabelValues(kind, status).Inc()
	}
}

// ObserveEntity counts one processed entity by outcome.
func ObserveEntity(outcome string) {
	if harvestEntitiesTotal != nil {
		harvestEntitiesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRegistryLookup counts one enrichment attempt by result.
func ObserveRegistryLookup(result string) {
	if registryLookupsTotal != nil {
		registryLookupsTotal.WithLabelValues(result).Inc()
	}
}

// ObservePacingDelay records how long the pipeline paused before a scrape.
func ObservePacingDelay(d time.Duration) {
	if pacingDelaySeconds != nil {
		pacingDelaySeconds.Observe(d.Seconds())
	}
}

// ObservePlanLabelsMerged records labels collapsed by the normalizer.
func ObservePlanLabelsMerged(n int) {
	if planClusterReductions != nil && n > 0 {
		planClusterReductions.Add(float64(n))
	}
}
