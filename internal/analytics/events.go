package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventCacheHit       EventType = "cache_hit"
	EventCacheMiss      EventType = "cache_miss"
	EventZeroResult     EventType = "zero_result"
	EventMalformedQuery EventType = "malformed_query"
)

// SearchEvent describes one search request. Type is the most specific of
// the event types that applies.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Advanced  bool      `json:"advanced"`
	Tokens    int       `json:"tokens"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Classify sets Type from the event's other fields.
func (e *SearchEvent) Classify(malformed bool) {
	switch {
	case malformed:
		e.Type = EventMalformedQuery
	case e.TotalHits == 0:
		e.Type = EventZeroResult
	case e.CacheHit:
		e.Type = EventCacheHit
	default:
		e.Type = EventCacheMiss
	}
}
