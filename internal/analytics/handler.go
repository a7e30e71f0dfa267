package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
)

// Handler serves GET /api/v1/analytics. An optional top=N query parameter
// shortens the query lists below their default length.
type Handler struct {
	aggregator *Aggregator
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.aggregator.Stats()
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "top must be a non-negative integer"})
			return
		}
		stats.TopQueries = truncate(stats.TopQueries, n)
		stats.ZeroResultQueries = truncate(stats.ZeroResultQueries, n)
		stats.MalformedQueries = truncate(stats.MalformedQueries, n)
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func truncate(qs []QueryCount, n int) []QueryCount {
	if len(qs) > n {
		return qs[:n]
	}
	return qs
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to write analytics response", "error", err)
	}
}
