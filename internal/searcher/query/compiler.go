// Package query compiles raw search strings into classified token
// sequences. Words are split on single spaces and lower-cased; the "~"
// token negates the word after it and the "^" token binds its neighbours
// into a two-word phrase. A query containing "^" anywhere is "advanced"
// and keeps its stop words.
package query

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/stopwords"
)

// MaxTokens is the number of tokens kept from a query after stop-word
// removal.
const MaxTokens = 100

// Query is a compiled search query. It is never mutated after Compile
// returns.
type Query struct {
	Raw      string  `json:"raw"`
	Advanced bool    `json:"advanced"`
	Tokens   []Token `json:"tokens"`
}

// Len returns the number of compiled tokens.
func (q *Query) Len() int { return len(q.Tokens) }

// IsEmpty reports whether the query compiled to no tokens at all.
func (q *Query) IsEmpty() bool { return len(q.Tokens) == 0 }

// Words returns the text of every WORD token in order.
func (q *Query) Words() []string {
	words := make([]string, 0, len(q.Tokens))
	for _, t := range q.Tokens {
		if t.IsWord() {
			words = append(words, t.Text)
		}
	}
	return words
}

// Compiler turns raw strings into Queries using a fixed stop-word set.
type Compiler struct {
	stopWords stopwords.Set
}

// NewCompiler returns a Compiler that removes the given stop words from
// non-advanced queries.
func NewCompiler(stop stopwords.Set) *Compiler {
	return &Compiler{stopWords: stop}
}

// DefaultCompiler removes stopwords.Default.
var DefaultCompiler = NewCompiler(stopwords.Default)

// Compile compiles raw with the default stop-word set.
func Compile(raw string) *Query {
	return DefaultCompiler.Compile(raw)
}

// Compile splits, filters, truncates and classifies raw. Any input,
// including the empty string, yields a Query.
func (c *Compiler) Compile(raw string) *Query {
	pieces := split(raw)
	advanced := strings.Contains(raw, adjacencyMarker)
	if !advanced {
		pieces = c.removeStopWords(pieces)
	}
	if len(pieces) > MaxTokens {
		pieces = pieces[:MaxTokens]
	}
	tokens := make([]Token, 0, len(pieces))
	for _, p := range pieces {
		tokens = append(tokens, Classify(p))
	}
	return &Query{
		Raw:      raw,
		Advanced: advanced,
		Tokens:   tokens,
	}
}

// split breaks raw on the space character and lower-cases each piece.
// Empty pieces between or before words are kept; trailing empty pieces
// are dropped, so "   " produces nothing. The empty string has no
// separator to split on and stays a single empty piece.
func split(raw string) []string {
	if raw == "" {
		return []string{""}
	}
	pieces := strings.Split(raw, " ")
	end := len(pieces)
	for end > 0 && pieces[end-1] == "" {
		end--
	}
	pieces = pieces[:end]
	for i, p := range pieces {
		pieces[i] = strings.ToLower(p)
	}
	return pieces
}

func (c *Compiler) removeStopWords(pieces []string) []string {
	kept := pieces[:0]
	for _, p := range pieces {
		if c.stopWords.Contains(p) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
