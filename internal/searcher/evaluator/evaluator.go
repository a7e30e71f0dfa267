// Package evaluator runs compiled queries against an ordered document
// corpus. Evaluation is a single left-to-right pass that narrows a running
// match set: WORD keeps documents containing the term, NOT drops documents
// containing the following token, and ADJACENCY keeps documents containing
// the phrase formed by its two neighbours. Operands taken by NOT and
// ADJACENCY are marked consumed and skipped by the cursor; the compiled
// query itself is never modified.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
)

// Document is anything whose full text can be searched.
type Document interface {
	Text() string
}

// QueryError reports an operator that lacks a required neighbour.
type QueryError struct {
	Position int
	Kind     query.Kind
	Reason   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s at token %d %s", apperrors.ErrMalformedQuery, e.Kind, e.Position, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return apperrors.ErrMalformedQuery
}

// Option tunes evaluation.
type Option func(*settings)

type settings struct {
	strictEmpty bool
}

// WithStrictEmpty keeps a match set that was filtered down to nothing
// empty. Without it a WORD or NOT that follows a zero-result filter scans
// the whole corpus again.
func WithStrictEmpty() Option {
	return func(s *settings) { s.strictEmpty = true }
}

// matchSet is the running result: unset until the first WORD, NOT or
// ADJACENCY filter runs, then a list of corpus positions in corpus order.
type matchSet struct {
	filtered bool
	indices  []int
}

type run[D Document] struct {
	docs     []D
	lowered  []string
	ready    []bool
	tokens   []query.Token
	consumed []bool
	strict   bool
}

// Evaluate returns the documents of docs that satisfy q, in corpus order.
// An empty query, or one whose operators never populate the match set,
// yields an empty result.
func Evaluate[D Document](q *query.Query, docs []D, opts ...Option) ([]D, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if q == nil || q.IsEmpty() {
		return []D{}, nil
	}
	r := &run[D]{
		docs:     docs,
		lowered:  make([]string, len(docs)),
		ready:    make([]bool, len(docs)),
		tokens:   q.Tokens,
		consumed: make([]bool, len(q.Tokens)),
		strict:   s.strictEmpty,
	}
	matches, err := r.evaluate()
	if err != nil {
		return nil, err
	}
	out := make([]D, 0, len(matches.indices))
	for _, i := range matches.indices {
		out = append(out, docs[i])
	}
	return out, nil
}

func (r *run[D]) evaluate() (matchSet, error) {
	var matches matchSet
	n := len(r.tokens)
	for pos := 0; pos < n; pos = r.next(pos) {
		tok := r.tokens[pos]
		switch tok.Kind {
		case query.KindWord:
			term := tok.Text
			matches = r.narrow(matches, func(text string) bool {
				return strings.Contains(text, term)
			})
		case query.KindNot:
			operand := r.next(pos)
			if operand >= n {
				return matchSet{}, &QueryError{Position: pos, Kind: tok.Kind, Reason: "has no operand after it"}
			}
			term := r.tokens[operand].Text
			matches = r.narrow(matches, func(text string) bool {
				return !strings.Contains(text, term)
			})
			r.consumed[operand] = true
		case query.KindAdjacency:
			before := r.prev(pos)
			if before < 0 {
				return matchSet{}, &QueryError{Position: pos, Kind: tok.Kind, Reason: "has no word before it"}
			}
			after := r.next(pos)
			if after >= n {
				return matchSet{}, &QueryError{Position: pos, Kind: tok.Kind, Reason: "has no word after it"}
			}
			phrase := r.tokens[before].Text + " " + r.tokens[after].Text
			matches = matchSet{
				filtered: true,
				indices: r.filter(matches.indices, func(text string) bool {
					return strings.Contains(text, phrase)
				}),
			}
			r.consumed[after] = true
		}
	}
	return matches, nil
}

// narrow applies keep to the current matches, or to the whole corpus when
// nothing has been filtered yet.
func (r *run[D]) narrow(m matchSet, keep func(string) bool) matchSet {
	if r.populated(m) {
		return matchSet{filtered: true, indices: r.filter(m.indices, keep)}
	}
	all := make([]int, len(r.docs))
	for i := range all {
		all[i] = i
	}
	return matchSet{filtered: true, indices: r.filter(all, keep)}
}

func (r *run[D]) populated(m matchSet) bool {
	if r.strict {
		return m.filtered
	}
	return len(m.indices) > 0
}

func (r *run[D]) filter(indices []int, keep func(string) bool) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if keep(r.text(i)) {
			out = append(out, i)
		}
	}
	return out
}

// text lower-cases document i at most once per evaluation.
func (r *run[D]) text(i int) string {
	if !r.ready[i] {
		r.lowered[i] = strings.ToLower(r.docs[i].Text())
		r.ready[i] = true
	}
	return r.lowered[i]
}

// next returns the first unconsumed position after pos, or len(tokens).
func (r *run[D]) next(pos int) int {
	for i := pos + 1; i < len(r.tokens); i++ {
		if !r.consumed[i] {
			return i
		}
	}
	return len(r.tokens)
}

// prev returns the last unconsumed position before pos, or -1.
func (r *run[D]) prev(pos int) int {
	for i := pos - 1; i >= 0; i-- {
		if !r.consumed[i] {
			return i
		}
	}
	return -1
}
