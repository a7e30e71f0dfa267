package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues(OutcomeMatched).Inc()
	m.SetCatalogSize(2, 10, 40, 55)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(OutcomeMatched)))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.CatalogDocuments))
	assert.Equal(t, float64(55), testutil.ToFloat64(m.IndexPostings))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pirex_search_queries_total")
	assert.Contains(t, string(body), "pirex_catalog_opi 2")
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.CacheHitsTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
}
