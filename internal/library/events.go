package library

import "time"

type CatalogEventType string

const (
	EventOpusAdded     CatalogEventType = "opus_added"
	EventOpusRemoved   CatalogEventType = "opus_removed"
	EventCatalogPurged CatalogEventType = "catalog_purged"
)

// CatalogEvent announces a catalog mutation to other replicas. Origin is
// the instance that made the change.
type CatalogEvent struct {
	Type       CatalogEventType `json:"type"`
	Ordinal    int              `json:"ordinal,omitempty"`
	Author     string           `json:"author,omitempty"`
	Title      string           `json:"title,omitempty"`
	Documents  int              `json:"documents,omitempty"`
	Generation uint64           `json:"generation"`
	Origin     string           `json:"origin"`
	Timestamp  time.Time        `json:"timestamp"`
}
