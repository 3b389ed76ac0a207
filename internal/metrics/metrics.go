// Package metrics holds the Prometheus collectors for the picker engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the picker engine.
type Metrics struct {
	CatalogLoads        *prometheus.CounterVec
	SearchIndexRebuilds prometheus.Counter
	Searches            prometheus.Counter
	SupersededRequests  prometheus.Counter
}

// New creates the metrics and registers them with reg. A nil reg creates
// unregistered collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CatalogLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countrypicker_catalog_loads_total",
			Help: "Catalog fetches by flag variant and result",
		}, []string{"variant", "result"}),
		SearchIndexRebuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "countrypicker_search_index_rebuilds_total",
			Help: "Number of times the search index was rebuilt for a new list",
		}),
		Searches: factory.NewCounter(prometheus.CounterOpts{
			Name: "countrypicker_searches_total",
			Help: "Number of non-empty search queries executed",
		}),
		SupersededRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "countrypicker_superseded_requests_total",
			Help: "Picker requests discarded because a newer request was issued",
		}),
	}
}

// ObserveCatalogLoad records the outcome of one catalog fetch.
func (m *Metrics) ObserveCatalogLoad(variant string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.CatalogLoads.WithLabelValues(variant, result).Inc()
}

// IncrementIndexRebuilds increments the search index rebuild counter by 1.
func (m *Metrics) IncrementIndexRebuilds() {
	if m == nil {
		return
	}
	m.SearchIndexRebuilds.Inc()
}

// IncrementSearches increments the search counter by 1.
func (m *Metrics) IncrementSearches() {
	if m == nil {
		return
	}
	m.Searches.Inc()
}

// IncrementSuperseded increments the superseded request counter by 1.
func (m *Metrics) IncrementSuperseded() {
	if m == nil {
		return
	}
	m.SupersededRequests.Inc()
}
