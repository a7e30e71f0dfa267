// Package handler serves the search API: query execution with optional
// result caching, plus cache statistics and invalidation.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/tracing"
)

type Searcher interface {
	Search(ctx context.Context, raw string, limit int) (*executor.SearchResult, error)
	Compile(raw string) *query.Query
	Generation() uint64
}

type Handler struct {
	searcher     Searcher
	cache        *cache.QueryCache
	tracker      analytics.Tracker
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds a Handler. queryCache, tracker and m may each be nil.
func New(s Searcher, queryCache *cache.QueryCache, tracker analytics.Tracker, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		searcher:     s,
		cache:        queryCache,
		tracker:      tracker,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&limit=. The q parameter must be
// present but may be empty; an empty query matches every document.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search")
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	raw := params.Get("q")

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.maxResults)
	}

	var result *executor.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		key := cache.Key(h.searcher.Compile(raw), h.searcher.Generation(), limit)
		cacheCtx, cacheSpan := tracing.Start(ctx, "cache")
		result, cacheHit, err = h.cache.GetOrCompute(cacheCtx, key, func() (*executor.SearchResult, error) {
			return h.searcher.Search(cacheCtx, raw, limit)
		})
		cacheSpan.SetAttr("hit", cacheHit)
		cacheSpan.End()
		if result != nil {
			// Results are shared between callers whose queries compile alike.
			shared := *result
			shared.Query = raw
			result = &shared
		}
	} else {
		result, err = h.searcher.Search(ctx, raw, limit)
	}
	latency := time.Since(start)

	if err != nil {
		malformed := errors.Is(err, apperrors.ErrMalformedQuery)
		if malformed {
			log.Info("malformed query", "query", raw, "error", err)
			h.observe(metrics.OutcomeMalformed, latency, nil, false)
			h.track(ctx, raw, nil, latency, false, true)
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("search execution failed", "query", raw, "error", err)
		h.observe(metrics.OutcomeError, latency, nil, false)
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.writeError(w, status, "search failed")
		return
	}

	outcome := metrics.OutcomeMatched
	if result.TotalHits == 0 {
		outcome = metrics.OutcomeZero
	}
	h.observe(outcome, latency, result, cacheHit)
	h.track(ctx, raw, result, latency, cacheHit, false)
	log.Info("search completed",
		"query", raw,
		"tokens", len(result.Terms),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":       hits,
		"misses":     misses,
		"total":      total,
		"hit_rate":   fmt.Sprintf("%.1f%%", hitRate),
		"generation": h.searcher.Generation(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) observe(outcome string, latency time.Duration, result *executor.SearchResult, cacheHit bool) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	if result == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(result.TotalHits))
	h.metrics.QueryTokens.Observe(float64(len(result.Terms)))
}

func (h *Handler) track(ctx context.Context, raw string, result *executor.SearchResult, latency time.Duration, cacheHit, malformed bool) {
	if h.tracker == nil {
		return
	}
	event := analytics.SearchEvent{
		Query:     raw,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if result != nil {
		event.Advanced = result.Advanced
		event.Tokens = len(result.Terms)
		event.TotalHits = result.TotalHits
		event.Returned = len(result.Results)
	}
	event.Classify(malformed)
	h.tracker.Track(event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
