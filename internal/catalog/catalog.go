// Package catalog keeps the in-memory collection of works (OPI) and their
// documents. It assigns ordinals, rejects duplicates, and maintains the
// statistics index. Search reads a snapshot of the documents and never
// touches catalog state directly.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
)

const firstOrdinal = 1

// Catalog holds the loaded opi, their documents and the statistics index.
// It is safe for concurrent use.
type Catalog struct {
	mu          sync.RWMutex
	opi         []*Opus
	nextOrdinal int
	index       *index.MemoryIndex
	generation  atomic.Uint64
	now         func() time.Time
	logger      *slog.Logger
}

// New returns an empty Catalog whose first opus gets ordinal 1.
func New() *Catalog {
	return &Catalog{
		nextOrdinal: firstOrdinal,
		index:       index.NewMemoryIndex(),
		now:         time.Now,
		logger:      slog.Default().With("component", "catalog"),
	}
}

// Add catalogs a new work. The author and title are required, the work
// must contain at least one document, and it must not duplicate an
// existing work by file path or by author and title.
func (c *Catalog) Add(sub Submission) (LoadSummary, error) {
	author := strings.TrimSpace(sub.Author)
	title := strings.TrimSpace(sub.Title)
	if author == "" || title == "" {
		return LoadSummary{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "author and title are required")
	}
	if len(sub.Documents) == 0 {
		return LoadSummary{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "opus contains no documents")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if dup := c.findDuplicateLocked(author, title, sub.FilePath); dup != nil {
		return LoadSummary{}, apperrors.Newf(apperrors.ErrDuplicateOpus, http.StatusConflict,
			"%q by %s is already cataloged as opus %d", dup.Title, dup.Author, dup.Ordinal)
	}

	opus := &Opus{
		Ordinal:   c.nextOrdinal,
		Author:    author,
		Title:     title,
		FilePath:  sub.FilePath,
		Documents: make([]Document, 0, len(sub.Documents)),
		AddedAt:   c.now().UTC(),
	}
	for i, body := range sub.Documents {
		doc := Document{
			ID:          uuid.NewString(),
			OpusOrdinal: opus.Ordinal,
			Ordinal:     i + 1,
			Body:        body,
		}
		opus.Documents = append(opus.Documents, doc)
		c.index.AddDocument(doc.ID, doc.Body)
	}
	c.nextOrdinal++
	c.opi = append(c.opi, opus)
	c.generation.Add(1)

	stats := c.index.Stats()
	c.logger.Info("opus added",
		"ordinal", opus.Ordinal,
		"author", opus.Author,
		"title", opus.Title,
		"documents", len(opus.Documents),
	)
	return LoadSummary{
		Ordinal:   opus.Ordinal,
		Author:    opus.Author,
		Title:     opus.Title,
		Documents: len(opus.Documents),
		Terms:     stats.Terms,
		Postings:  stats.Postings,
	}, nil
}

func (c *Catalog) findDuplicateLocked(author, title, filePath string) *Opus {
	for _, o := range c.opi {
		if filePath != "" && o.FilePath == filePath {
			return o
		}
		if strings.EqualFold(o.Author, author) && strings.EqualFold(o.Title, title) {
			return o
		}
	}
	return nil
}

// Remove drops the work with the given ordinal and its postings.
func (c *Catalog) Remove(ordinal int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, o := range c.opi {
		if o.Ordinal != ordinal {
			continue
		}
		ids := make([]string, 0, len(o.Documents))
		for _, d := range o.Documents {
			ids = append(ids, d.ID)
		}
		c.index.RemoveDocuments(ids...)
		c.opi = append(c.opi[:i], c.opi[i+1:]...)
		c.generation.Add(1)
		c.logger.Info("opus removed", "ordinal", ordinal, "documents", len(ids))
		return nil
	}
	return apperrors.Newf(apperrors.ErrOpusNotFound, http.StatusNotFound, "no opus with ordinal %d", ordinal)
}

// Purge removes every work and restarts ordinal numbering.
func (c *Catalog) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := len(c.opi)
	c.opi = nil
	c.nextOrdinal = firstOrdinal
	c.index.Reset()
	c.generation.Add(1)
	c.logger.Info("catalog purged", "opi_removed", removed)
}

// Opus returns a copy of the work with the given ordinal.
func (c *Catalog) Opus(ordinal int) (Opus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, o := range c.opi {
		if o.Ordinal == ordinal {
			return copyOpus(o), nil
		}
	}
	return Opus{}, apperrors.Newf(apperrors.ErrOpusNotFound, http.StatusNotFound, "no opus with ordinal %d", ordinal)
}

// Opi returns copies of every work in catalog order.
func (c *Catalog) Opi() []Opus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Opus, 0, len(c.opi))
	for _, o := range c.opi {
		out = append(out, copyOpus(o))
	}
	return out
}

// Documents returns every document of every work, works in catalog order
// and documents in extraction order. The slice is the caller's to keep.
func (c *Catalog) Documents() []Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, o := range c.opi {
		n += len(o.Documents)
	}
	out := make([]Document, 0, n)
	for _, o := range c.opi {
		out = append(out, o.Documents...)
	}
	return out
}

// Corpus returns the documents and opus headers as of one generation.
func (c *Catalog) Corpus() Corpus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, o := range c.opi {
		n += len(o.Documents)
	}
	corpus := Corpus{
		Generation: c.generation.Load(),
		Documents:  make([]Document, 0, n),
		Headers:    make(map[int]Header, len(c.opi)),
	}
	for _, o := range c.opi {
		corpus.Documents = append(corpus.Documents, o.Documents...)
		corpus.Headers[o.Ordinal] = Header{Ordinal: o.Ordinal, Author: o.Author, Title: o.Title}
	}
	return corpus
}

func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.index.Stats()
	return Stats{
		Opi:       len(c.opi),
		Documents: idx.Documents,
		Terms:     idx.Terms,
		Postings:  idx.Postings,
	}
}

// Generation changes whenever the catalog contents change.
func (c *Catalog) Generation() uint64 {
	return c.generation.Load()
}

// Summary renders one block per work followed by the index totals.
func (c *Catalog) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var b strings.Builder
	for _, o := range c.opi {
		fmt.Fprintf(&b, "OPUS %d: %s\t%s\t%d documents\n\t\t%s\n",
			o.Ordinal, o.Author, o.Title, len(o.Documents), o.FilePath)
	}
	fmt.Fprintf(&b, "\nIndex Terms: %d\nPostings: %d", c.index.TermCount(), c.index.PostingCount())
	return b.String()
}

// Snapshot captures the catalog for persistence.
func (c *Catalog) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	opi := make([]Opus, 0, len(c.opi))
	for _, o := range c.opi {
		opi = append(opi, copyOpus(o))
	}
	return State{NextOrdinal: c.nextOrdinal, Opi: opi}
}

// Restore replaces the catalog contents with state and rebuilds the
// statistics index on workers goroutines.
func (c *Catalog) Restore(ctx context.Context, state State, workers int) error {
	opi := make([]*Opus, 0, len(state.Opi))
	seen := make(map[int]struct{}, len(state.Opi))
	docs := make([]index.Document, 0, state.NumDocuments())
	next := state.NextOrdinal
	for _, o := range state.Opi {
		if _, dup := seen[o.Ordinal]; dup {
			return apperrors.Newf(apperrors.ErrCorruptSnapshot, http.StatusUnprocessableEntity,
				"ordinal %d appears twice", o.Ordinal)
		}
		seen[o.Ordinal] = struct{}{}
		restored := copyOpus(&o)
		for i := range restored.Documents {
			d := &restored.Documents[i]
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			d.OpusOrdinal = restored.Ordinal
			docs = append(docs, index.Document{ID: d.ID, Text: d.Body})
		}
		if restored.Ordinal >= next {
			next = restored.Ordinal + 1
		}
		opi = append(opi, &restored)
	}
	if next < firstOrdinal {
		next = firstOrdinal
	}

	idx, err := index.Build(ctx, docs, workers)
	if err != nil {
		return fmt.Errorf("rebuilding statistics index: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.opi = opi
	c.nextOrdinal = next
	c.index = idx
	c.generation.Add(1)
	c.logger.Info("catalog restored",
		"opi", len(opi),
		"documents", len(docs),
		"terms", idx.TermCount(),
		"postings", idx.PostingCount(),
	)
	return nil
}

func copyOpus(o *Opus) Opus {
	cp := *o
	cp.Documents = append([]Document(nil), o.Documents...)
	return cp
}
