package metrics

import "github.com/prometheus/client_golang/prometheus"

var catalogEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "events_total",
		Help:      "Catalog file imports and removals by outcome",
	},
	[]string{"op", "status"}, // op: "import" / "remove"
)

func init() {
	prometheus.MustRegister(catalogEventsTotal)
}

// ObserveCatalogEvent counts one catalog file import or removal.
func ObserveCatalogEvent(op string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	catalogEventsTotal.WithLabelValues(op, status).Inc()
}
