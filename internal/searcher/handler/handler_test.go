package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/library"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value)
	return nil
}

func (s *memStore) FlushByPattern(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

type trackerFunc func(analytics.SearchEvent)

func (f trackerFunc) Track(e analytics.SearchEvent) { f(e) }

func newLibrary(t *testing.T) *library.Library {
	t.Helper()
	lib := library.New()
	_, err := lib.AddOpus(context.Background(), catalog.Submission{
		Author:    "Herman Melville",
		Title:     "Moby Dick",
		Documents: []string{"Call me Ishmael.", "The white whale.", "A whale ship.", "Grey sea."},
	})
	require.NoError(t, err)
	return lib
}

func search(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, executor.SearchResult) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var result executor.SearchResult
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	}
	return rec, result
}

func TestSearch(t *testing.T) {
	var events []analytics.SearchEvent
	m := metrics.New(nil)
	h := New(newLibrary(t), nil, trackerFunc(func(e analytics.SearchEvent) { events = append(events, e) }), m, 10, 100)

	rec, result := search(t, h, "/api/v1/search?q=whale")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "whale", result.Query)
	assert.Equal(t, 2, result.TotalHits)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, "Moby Dick", result.Results[0].Title)

	require.Len(t, events, 1)
	assert.Equal(t, analytics.EventCacheMiss, events[0].Type)
	assert.Equal(t, 2, events[0].TotalHits)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(metrics.OutcomeMatched)))
}

func TestSearchLimit(t *testing.T) {
	h := New(newLibrary(t), nil, nil, nil, 10, 1)

	_, result := search(t, h, "/api/v1/search?q=whale&limit=5")
	assert.Equal(t, 2, result.TotalHits)
	assert.Len(t, result.Results, 1, "limit is capped by maxResults")

	rec, _ := search(t, h, "/api/v1/search?q=whale&limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = search(t, h, "/api/v1/search?q=whale&limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRequiresQueryParameter(t *testing.T) {
	h := New(newLibrary(t), nil, nil, nil, 10, 100)
	rec, _ := search(t, h, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, result := search(t, h, "/api/v1/search?q=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, result.TotalHits, "an empty query matches every document")
	assert.Len(t, result.Results, 4)
}

func TestSearchMalformed(t *testing.T) {
	var events []analytics.SearchEvent
	m := metrics.New(nil)
	h := New(newLibrary(t), nil, trackerFunc(func(e analytics.SearchEvent) { events = append(events, e) }), m, 10, 100)

	rec, _ := search(t, h, "/api/v1/search?q=whale+~")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed query")
	require.Len(t, events, 1)
	assert.Equal(t, analytics.EventMalformedQuery, events[0].Type)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(metrics.OutcomeMalformed)))
}

func TestSearchUsesCache(t *testing.T) {
	lib := newLibrary(t)
	store := &memStore{data: make(map[string]string)}
	qc := cache.New(store, time.Minute, nil)
	var events []analytics.SearchEvent
	h := New(lib, qc, trackerFunc(func(e analytics.SearchEvent) { events = append(events, e) }), nil, 10, 100)

	_, first := search(t, h, "/api/v1/search?q=whale")
	_, second := search(t, h, "/api/v1/search?q=WHALE")
	assert.Equal(t, first.TotalHits, second.TotalHits)
	assert.Equal(t, "WHALE", second.Query, "cached result reports the caller's query")
	require.Len(t, events, 2)
	assert.True(t, events[1].CacheHit)

	_, err := lib.AddOpus(context.Background(), catalog.Submission{
		Author: "Anon", Title: "Whales", Documents: []string{"whale whale"},
	})
	require.NoError(t, err)
	_, third := search(t, h, "/api/v1/search?q=whale")
	assert.Equal(t, 3, third.TotalHits, "a new generation bypasses stale entries")
}

func TestCacheEndpoints(t *testing.T) {
	disabled := New(newLibrary(t), nil, nil, nil, 10, 100)
	rec := httptest.NewRecorder()
	disabled.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, rec.Body.String(), "disabled")
	rec = httptest.NewRecorder()
	disabled.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store := &memStore{data: make(map[string]string)}
	h := New(newLibrary(t), cache.New(store, time.Minute, nil), nil, nil, 10, 100)
	search(t, h, "/api/v1/search?q=whale")
	search(t, h, "/api/v1/search?q=whale")

	rec = httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	var stats map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, "50.0%", stats["hit_rate"])

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.data)
}
