package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/kafka"
)

const (
	latencyWindow = 10000
	topQueries    = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	AdvancedSearches  int64        `json:"advanced_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	MalformedCount    int64        `json:"malformed_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	AvgTokens         float64      `json:"avg_tokens"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	MalformedQueries  []QueryCount `json:"malformed_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search events into running statistics. Latency
// percentiles cover the most recent latencyWindow searches.
type Aggregator struct {
	mu               sync.Mutex
	stats            AggregatedStats
	tokenSum         int64
	latencies        []int64
	latencyNext      int
	queryCounts      map[string]int64
	zeroResults      map[string]int64
	malformedQueries map[string]int64
	startTime        time.Time
	now              func() time.Time
	logger           *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:        make([]int64, 0, 1024),
		queryCounts:      make(map[string]int64),
		zeroResults:      make(map[string]int64),
		malformedQueries: make(map[string]int64),
		startTime:        time.Now(),
		now:              time.Now,
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// Track records event directly, for deployments without Kafka.
func (a *Aggregator) Track(event SearchEvent) {
	a.record(event)
}

// HandleMessage is the Kafka handler for the analytics topic. Undecodable
// messages are logged and skipped so they do not block the partition.
func (a *Aggregator) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[SearchEvent](value)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	a.record(event)
	return nil
}

// Restore seeds the counters from a persisted snapshot.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalSearches = s.TotalSearches
	a.stats.AdvancedSearches = s.AdvancedSearches
	a.stats.CacheHits = s.CacheHits
	a.stats.CacheMisses = s.CacheMisses
	a.stats.ZeroResultCount = s.ZeroResultCount
	a.stats.MalformedCount = s.MalformedCount
	a.tokenSum = int64(s.AvgTokens * float64(s.TotalSearches))
	for _, qc := range s.TopQueries {
		a.queryCounts[qc.Query] += qc.Count
	}
	for _, qc := range s.ZeroResultQueries {
		a.zeroResults[qc.Query] += qc.Count
	}
	for _, qc := range s.MalformedQueries {
		a.malformedQueries[qc.Query] += qc.Count
	}
}

func (a *Aggregator) record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalSearches++
	a.queryCounts[event.Query]++
	if event.Advanced {
		a.stats.AdvancedSearches++
	}
	if event.Type == EventMalformedQuery {
		a.stats.MalformedCount++
		a.malformedQueries[event.Query]++
		return
	}
	a.tokenSum += int64(event.Tokens)
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if event.TotalHits == 0 {
		a.stats.ZeroResultCount++
		a.zeroResults[event.Query]++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % latencyWindow
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if evaluated := stats.TotalSearches - stats.MalformedCount; evaluated > 0 {
		stats.AvgTokens = float64(a.tokenSum) / float64(evaluated)
	}
	stats.TopQueries = topN(a.queryCounts, topQueries)
	stats.ZeroResultQueries = topN(a.zeroResults, topQueries)
	stats.MalformedQueries = topN(a.malformedQueries, topQueries)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, breaking ties by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
