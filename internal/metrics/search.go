package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Branch outcomes.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusSkipped = "skipped"
)

var (
	searchBranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "branch_total",
			Help:      "Search fan-out branches by outcome",
		},
		[]string{"branch", "status"},
	)

	searchBranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "branch_duration_seconds",
			Help:      "Search fan-out branch duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"branch"},
	)

	searchIntentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "intent_total",
			Help:      "Searches by classified intent",
		},
		[]string{"intent"},
	)

	facetCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "facet_cache_total",
			Help:      "Facet cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

func init() {
	prometheus.MustRegister(searchBranchTotal, searchBranchDuration, searchIntentTotal, facetCacheTotal)
}

// ObserveBranch records one fan-out branch.
func ObserveBranch(branch, status string, d time.Duration) {
	searchBranchTotal.WithLabelValues(branch, status).Inc()
	if status != StatusSkipped {
		searchBranchDuration.WithLabelValues(branch).Observe(d.Seconds())
	}
}

// ObserveIntent counts a classified search.
func ObserveIntent(intent string) {
	searchIntentTotal.WithLabelValues(intent).Inc()
}

// ObserveFacetCache counts a facet cache lookup.
func ObserveFacetCache(result string) {
	facetCacheTotal.WithLabelValues(result).Inc()
}
