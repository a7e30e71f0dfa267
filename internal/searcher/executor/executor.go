// Package executor runs a raw query against a catalog corpus: it compiles
// the query, evaluates it over a consistent document snapshot, and shapes
// the matches into hits.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/evaluator"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/tracing"
)

const defaultPreviewChars = 160

// Source supplies the corpus a search runs over.
type Source interface {
	Corpus() catalog.Corpus
}

// Hit is one matching document.
type Hit struct {
	DocID       string `json:"doc_id"`
	OpusOrdinal int    `json:"opus_ordinal"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	DocOrdinal  int    `json:"doc_ordinal"`
	Preview     string `json:"preview"`
}

type SearchResult struct {
	Query      string        `json:"query"`
	Advanced   bool          `json:"advanced"`
	Terms      []query.Token `json:"terms"`
	TotalHits  int           `json:"total_hits"`
	Results    []Hit         `json:"results"`
	Generation uint64        `json:"generation"`
}

type Option func(*Executor)

// WithStrictEmpty keeps an empty intermediate match set empty.
func WithStrictEmpty(strict bool) Option {
	return func(e *Executor) {
		if strict {
			e.evalOpts = append(e.evalOpts, evaluator.WithStrictEmpty())
		}
	}
}

func WithCompiler(c *query.Compiler) Option {
	return func(e *Executor) { e.compiler = c }
}

// WithPreviewChars sets the preview length in runes. Zero disables previews.
func WithPreviewChars(n int) Option {
	return func(e *Executor) { e.previewChars = n }
}

type Executor struct {
	source       Source
	compiler     *query.Compiler
	evalOpts     []evaluator.Option
	previewChars int
	logger       *slog.Logger
}

func New(source Source, opts ...Option) *Executor {
	e := &Executor{
		source:       source,
		compiler:     query.DefaultCompiler,
		previewChars: defaultPreviewChars,
		logger:       slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile exposes the executor's compiler so callers can key caches on the
// normalized form of a query.
func (e *Executor) Compile(raw string) *query.Query {
	return e.compiler.Compile(raw)
}

// Execute compiles raw and evaluates it. TotalHits counts every match;
// Results holds at most limit hits in corpus order, or all of them when
// limit is not positive. Malformed queries return an error wrapping
// apperrors.ErrMalformedQuery.
func (e *Executor) Execute(ctx context.Context, raw string, limit int) (*SearchResult, error) {
	_, compileSpan := tracing.StartChild(ctx, "compile")
	q := e.compiler.Compile(raw)
	compileSpan.SetAttr("tokens", q.Len())
	compileSpan.End()

	result := &SearchResult{
		Query:    raw,
		Advanced: q.Advanced,
		Terms:    q.Tokens,
		Results:  []Hit{},
	}
	if q.IsEmpty() {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	corpus := e.source.Corpus()
	result.Generation = corpus.Generation
	_, evalSpan := tracing.StartChild(ctx, "evaluate")
	matches, err := evaluator.Evaluate(q, corpus.Documents, e.evalOpts...)
	evalSpan.SetAttr("corpus", len(corpus.Documents))
	evalSpan.SetAttr("matches", len(matches))
	evalSpan.End()
	if err != nil {
		return nil, err
	}

	result.TotalHits = len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	result.Results = make([]Hit, 0, len(matches))
	for _, d := range matches {
		h := corpus.Headers[d.OpusOrdinal]
		result.Results = append(result.Results, Hit{
			DocID:       d.ID,
			OpusOrdinal: d.OpusOrdinal,
			Author:      h.Author,
			Title:       h.Title,
			DocOrdinal:  d.Ordinal,
			Preview:     preview(d.Body, e.previewChars),
		})
	}

	e.logger.Debug("query executed",
		"query", raw,
		"tokens", q.Len(),
		"advanced", q.Advanced,
		"corpus", len(corpus.Documents),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
	)
	return result, nil
}

func preview(body string, n int) string {
	if n <= 0 {
		return ""
	}
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) <= n {
		return body
	}
	runes := []rune(body)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
