// Package metrics defines the Prometheus collectors for the PIREX services
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes used as the "outcome" label of SearchQueriesTotal.
const (
	OutcomeMatched   = "matched"
	OutcomeZero      = "zero_result"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	QueryTokens          prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CatalogOpi           prometheus.Gauge
	CatalogDocuments     prometheus.Gauge
	IndexTerms           prometheus.Gauge
	IndexPostings        prometheus.Gauge
	CatalogEventsTotal   *prometheus.CounterVec
	PersistFailuresTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pirex_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pirex_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pirex_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pirex_search_queries_total",
				Help: "Total search queries by outcome (matched, zero_result, malformed, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pirex_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pirex_search_results_count",
				Help:    "Number of matching documents per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		QueryTokens: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pirex_query_tokens",
				Help:    "Number of tokens in compiled queries.",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pirex_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pirex_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CatalogOpi: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pirex_catalog_opi",
				Help: "Number of cataloged works.",
			},
		),
		CatalogDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pirex_catalog_documents",
				Help: "Number of cataloged documents.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pirex_index_terms",
				Help: "Distinct terms in the statistics index.",
			},
		),
		IndexPostings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pirex_index_postings",
				Help: "Postings in the statistics index.",
			},
		),
		CatalogEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pirex_catalog_events_total",
				Help: "Catalog mutations by type (added, removed, purged).",
			},
			[]string{"type"},
		),
		PersistFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pirex_persist_failures_total",
				Help: "Library persistence failures by backend.",
			},
			[]string{"backend"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pirex_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.HTTPRequestsInFlight,
			m.SearchQueriesTotal,
			m.SearchLatency,
			m.SearchResultsCount,
			m.QueryTokens,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.CatalogOpi,
			m.CatalogDocuments,
			m.IndexTerms,
			m.IndexPostings,
			m.CatalogEventsTotal,
			m.PersistFailuresTotal,
			m.CircuitBreakerState,
		)
	}

	return m
}

// SetCatalogSize updates the catalog and index gauges.
func (m *Metrics) SetCatalogSize(opi, documents, terms, postings int) {
	m.CatalogOpi.Set(float64(opi))
	m.CatalogDocuments.Set(float64(documents))
	m.IndexTerms.Set(float64(terms))
	m.IndexPostings.Set(float64(postings))
}

// Handler returns the Prometheus scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
