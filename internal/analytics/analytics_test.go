package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/kafka"
)

func event(q string, hits int, cacheHit bool, latency int64) SearchEvent {
	e := SearchEvent{Query: q, Tokens: 1, TotalHits: hits, CacheHit: cacheHit, LatencyMs: latency}
	e.Classify(false)
	return e
}

func TestClassify(t *testing.T) {
	e := SearchEvent{TotalHits: 3, CacheHit: true}
	e.Classify(false)
	assert.Equal(t, EventCacheHit, e.Type)

	e = SearchEvent{TotalHits: 3}
	e.Classify(false)
	assert.Equal(t, EventCacheMiss, e.Type)

	e = SearchEvent{TotalHits: 0, CacheHit: true}
	e.Classify(false)
	assert.Equal(t, EventZeroResult, e.Type)

	e.Classify(true)
	assert.Equal(t, EventMalformedQuery, e.Type)
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	a.Track(event("whale", 3, false, 10))
	a.Track(event("whale", 3, true, 2))
	a.Track(event("kraken", 0, false, 4))
	malformed := SearchEvent{Query: "whale ~", Advanced: false}
	malformed.Classify(true)
	a.Track(malformed)

	stats := a.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.MalformedCount)
	assert.InDelta(t, 16.0/3.0, stats.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(4), stats.P50LatencyMs)
	assert.Equal(t, int64(10), stats.P99LatencyMs)
	assert.InDelta(t, 1.0, stats.AvgTokens, 0.001)
	assert.Equal(t, QueryCount{Query: "whale", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "kraken", Count: 1}}, stats.ZeroResultQueries)
	assert.Equal(t, []QueryCount{{Query: "whale ~", Count: 1}}, stats.MalformedQueries)
}

func TestAggregatorLatencyWindow(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < latencyWindow+10; i++ {
		a.Track(event("q", 1, false, int64(i)))
	}
	a.mu.Lock()
	assert.Len(t, a.latencies, latencyWindow)
	a.mu.Unlock()
	assert.Equal(t, int64(latencyWindow+10), a.Stats().TotalSearches)
}

func TestAggregatorHandleMessage(t *testing.T) {
	a := NewAggregator()
	data, err := json.Marshal(event("whale", 1, false, 3))
	require.NoError(t, err)

	require.NoError(t, a.HandleMessage(context.Background(), nil, data))
	require.NoError(t, a.HandleMessage(context.Background(), nil, []byte("garbage")))
	assert.Equal(t, int64(1), a.Stats().TotalSearches)
}

func TestAggregatorRestore(t *testing.T) {
	a := NewAggregator()
	a.Restore(AggregatedStats{
		TotalSearches: 10,
		CacheHits:     4,
		TopQueries:    []QueryCount{{Query: "whale", Count: 7}},
	})
	a.Track(event("whale", 1, true, 1))

	stats := a.Stats()
	assert.Equal(t, int64(11), stats.TotalSearches)
	assert.Equal(t, int64(5), stats.CacheHits)
	assert.Equal(t, QueryCount{Query: "whale", Count: 8}, stats.TopQueries[0])
}

func TestTopNBreaksTiesByQuery(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 2}, 2)
	assert.Equal(t, []QueryCount{{Query: "c", Count: 2}, {Query: "a", Count: 1}}, got)
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(event("whale", 1, false, 1))
	c.Track(event("sea", 0, false, 1))
	cancel()
	c.Close()

	assert.Equal(t, 2, pub.published())
	assert.Equal(t, string(EventCacheMiss), pub.batches[0][0].Type)
}

func TestCollectorFlushesFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.Track(event("a", 1, false, 1))
	c.Track(event("b", 1, false, 1))
	assert.Eventually(t, func() bool { return pub.published() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCollectorRequeuesAndCaps(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 2, time.Hour)
	for i := 0; i < 10; i++ {
		c.mu.Lock()
		c.buffer = append(c.buffer, kafka.Event{Key: "k"})
		c.mu.Unlock()
	}
	c.flush(context.Background())
	assert.Equal(t, 6, c.BufferLen())
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator()
	a.Track(event("whale", 1, false, 1))
	a.Track(event("sea", 1, false, 1))
	h := NewHandler(a)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Len(t, stats.TopQueries, 1)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
