package catalog

import "time"

// Document is one searchable unit of an opus.
type Document struct {
	ID          string `json:"id"`
	OpusOrdinal int    `json:"opus_ordinal"`
	Ordinal     int    `json:"ordinal"`
	Body        string `json:"body"`
}

// Text returns the full document text.
func (d Document) Text() string { return d.Body }

// Opus is a cataloged work and the documents extracted from it.
type Opus struct {
	Ordinal   int        `json:"ordinal"`
	Author    string     `json:"author"`
	Title     string     `json:"title"`
	FilePath  string     `json:"file_path"`
	Documents []Document `json:"documents"`
	AddedAt   time.Time  `json:"added_at"`
}

func (o Opus) NumDocuments() int { return len(o.Documents) }

// Submission is a work offered to the catalog before it has an ordinal.
type Submission struct {
	Author    string
	Title     string
	FilePath  string
	Documents []string
}

// LoadSummary describes the outcome of adding an opus.
type LoadSummary struct {
	Ordinal   int    `json:"ordinal"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Documents int    `json:"documents"`
	Terms     int    `json:"index_terms"`
	Postings  int    `json:"postings"`
}

// Stats reports catalog and index sizes.
type Stats struct {
	Opi       int `json:"opi"`
	Documents int `json:"documents"`
	Terms     int `json:"index_terms"`
	Postings  int `json:"postings"`
}

// State is the persisted form of a catalog.
type State struct {
	NextOrdinal int    `json:"next_ordinal"`
	Opi         []Opus `json:"opi"`
}

// NumDocuments counts the documents across every opus in the state.
func (s State) NumDocuments() int {
	n := 0
	for _, o := range s.Opi {
		n += len(o.Documents)
	}
	return n
}

// Header identifies an opus without its documents.
type Header struct {
	Ordinal int    `json:"ordinal"`
	Author  string `json:"author"`
	Title   string `json:"title"`
}

// Corpus is a consistent read-only view of the catalog taken under one
// lock: the documents in search order plus the header of every opus.
type Corpus struct {
	Generation uint64
	Documents  []Document
	Headers    map[int]Header
}
