// Package index maintains an in-memory inverted index over cataloged
// documents. It exists to report term and posting counts; retrieval never
// consults it.
package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/indexer/tokenizer"
)

type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[string]*Posting
	docTerms map[string][]string
	postings int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:    make(map[string]map[string]*Posting),
		docTerms: make(map[string][]string),
	}
}

// AddDocument indexes text under docID. Re-adding a docID replaces its
// previous postings.
func (m *MemoryIndex) AddDocument(docID string, text string) {
	tokens := tokenizer.Tokenize(text)
	termData := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docTerms[docID]; exists {
		m.removeLocked(docID)
	}
	terms := make([]string, 0, len(termData))
	for term, posting := range termData {
		docs, exists := m.index[term]
		if !exists {
			docs = make(map[string]*Posting)
			m.index[term] = docs
		}
		docs[docID] = posting
		terms = append(terms, term)
	}
	m.docTerms[docID] = terms
	m.postings += len(terms)
}

// RemoveDocuments drops every posting belonging to the given documents.
// Unknown IDs are ignored.
func (m *MemoryIndex) RemoveDocuments(docIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, docID := range docIDs {
		m.removeLocked(docID)
	}
}

func (m *MemoryIndex) removeLocked(docID string) {
	terms, exists := m.docTerms[docID]
	if !exists {
		return
	}
	for _, term := range terms {
		docs := m.index[term]
		delete(docs, docID)
		if len(docs) == 0 {
			delete(m.index, term)
		}
	}
	m.postings -= len(terms)
	delete(m.docTerms, docID)
}

// Postings returns the postings for term ordered by document ID.
func (m *MemoryIndex) Postings(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *MemoryIndex) PostingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postings
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docTerms)
}

func (m *MemoryIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Terms:     len(m.index),
		Postings:  m.postings,
		Documents: len(m.docTerms),
	}
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docTerms = make(map[string][]string)
	m.postings = 0
}
