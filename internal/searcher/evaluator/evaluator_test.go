package evaluator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc string

func (d doc) Text() string { return string(d) }

func corpus(texts ...string) []doc {
	out := make([]doc, len(texts))
	for i, t := range texts {
		out[i] = doc(t)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		docs  []doc
		want  []doc
	}{
		{
			name:  "single word is a case-insensitive substring match",
			query: "cat",
			docs:  corpus("a cat sat", "no match here", "Cat nap"),
			want:  corpus("a cat sat", "Cat nap"),
		},
		{
			name:  "consecutive words are a conjunction",
			query: "cat sat",
			docs:  corpus("a cat sat", "no match here", "Cat nap"),
			want:  corpus("a cat sat"),
		},
		{
			name:  "not removes documents containing its operand",
			query: "cat ~ nap",
			docs:  corpus("a cat sat", "no match here", "Cat nap"),
			want:  corpus("a cat sat"),
		},
		{
			name:  "leading not scans the whole corpus",
			query: "~ cat",
			docs:  corpus("a cat sat", "no match here", "Cat nap"),
			want:  corpus("no match here"),
		},
		{
			name:  "not operand is not reused as a word",
			query: "cat ~ dog",
			docs:  corpus("cat", "cat dog", "dog"),
			want:  corpus("cat"),
		},
		{
			name:  "adjacency keeps the exact phrase",
			query: "cat ^ nap",
			docs:  corpus("cat nap today", "cat and nap"),
			want:  corpus("cat nap today"),
		},
		{
			name:  "adjacency is case-insensitive",
			query: "Cat ^ Nap",
			docs:  corpus("The CAT NAP", "cat and nap"),
			want:  corpus("The CAT NAP"),
		},
		{
			name:  "adjacency uses the nearest unconsumed neighbour",
			query: "sea ~ whale ^ ship",
			docs:  corpus("sea ~ ship", "sea ship"),
			want:  corpus("sea ~ ship"),
		},
		{
			name:  "advanced query keeps stop words in phrases",
			query: "the ^ whale",
			docs:  corpus("the whale surfaced", "a whale surfaced", "whale the"),
			want:  corpus("the whale surfaced"),
		},
		{
			name:  "empty token matches everything",
			query: " whale",
			docs:  corpus("whale", "White Whale", "sea"),
			want:  corpus("whale", "White Whale"),
		},
		{
			name:  "only stop words yields nothing",
			query: "the and of",
			docs:  corpus("the and of"),
			want:  corpus(),
		},
		{
			name:  "empty query matches everything",
			query: "",
			docs:  corpus("a cat", "dog"),
			want:  corpus("a cat", "dog"),
		},
		{
			name:  "only spaces yields nothing",
			query: "   ",
			docs:  corpus("a cat", "dog"),
			want:  corpus(),
		},
		{
			name:  "corpus order is preserved",
			query: "x",
			docs:  corpus("x3", "x1", "y", "x2"),
			want:  corpus("x3", "x1", "x2"),
		},
		{
			name:  "empty corpus",
			query: "whale",
			docs:  corpus(),
			want:  corpus(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(query.Compile(tt.query), tt.docs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateMalformed(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		position int
		kind     query.Kind
	}{
		{name: "lone not", query: "~", position: 0, kind: query.KindNot},
		{name: "trailing not", query: "whale ~", position: 1, kind: query.KindNot},
		{name: "leading adjacency", query: "^ whale", position: 0, kind: query.KindAdjacency},
		{name: "trailing adjacency", query: "whale ^", position: 1, kind: query.KindAdjacency},
		{name: "second not loses its operand", query: "whale ~ sea ~", position: 3, kind: query.KindNot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(query.Compile(tt.query), corpus("whale", "sea"))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, apperrors.ErrMalformedQuery)

			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.position, qe.Position)
			assert.Equal(t, tt.kind, qe.Kind)
		})
	}
}

func TestEvaluateEmptyFilterFallback(t *testing.T) {
	docs := corpus("white whale", "grey sea", "whale song")
	tests := []struct {
		name   string
		query  string
		compat []doc
		strict []doc
	}{
		{
			name:   "not after zero-result word",
			query:  "kraken ~ whale",
			compat: corpus("grey sea"),
			strict: corpus(),
		},
		{
			name:   "word after zero-result word",
			query:  "kraken whale",
			compat: corpus("white whale", "whale song"),
			strict: corpus(),
		},
		{
			name:   "adjacency after zero-result word",
			query:  "kraken ^ whale",
			compat: corpus(),
			strict: corpus(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query.Compile(tt.query)

			got, err := Evaluate(q, docs)
			require.NoError(t, err)
			assert.Equal(t, tt.compat, got, "compatible mode")

			got, err = Evaluate(q, docs, WithStrictEmpty())
			require.NoError(t, err)
			assert.Equal(t, tt.strict, got, "strict mode")
		})
	}
}

func TestEvaluateDoesNotMutateQuery(t *testing.T) {
	q := query.Compile("sea ~ whale ^ ship")
	before := append([]query.Token(nil), q.Tokens...)
	docs := corpus("sea ~ ship", "sea ship", "whale")

	first, err := Evaluate(q, docs)
	require.NoError(t, err)
	second, err := Evaluate(q, docs)
	require.NoError(t, err)

	assert.Equal(t, before, q.Tokens)
	assert.Equal(t, first, second)
}

func TestEvaluateNilQuery(t *testing.T) {
	got, err := Evaluate[doc](nil, corpus("whale"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

type countingDoc struct {
	text  string
	calls *int
}

func (d countingDoc) Text() string {
	*d.calls++
	return d.text
}

func TestEvaluateLowersEachDocumentOnce(t *testing.T) {
	calls := 0
	docs := []countingDoc{
		{text: "White Whale Song", calls: &calls},
		{text: "Grey Sea", calls: &calls},
	}
	_, err := Evaluate(query.Compile("whale song ~ sea white"), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestQueryErrorMessage(t *testing.T) {
	err := &QueryError{Position: 3, Kind: query.KindNot, Reason: "has no operand after it"}
	assert.Equal(t, "malformed query: NOT at token 3 has no operand after it", err.Error())
}

func BenchmarkEvaluate(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		docs := make([]doc, n)
		for i := range docs {
			docs[i] = doc(fmt.Sprintf("Paragraph %d of the white whale %s", i, strings.Repeat("sea ", i%7)))
		}
		queries := map[string]*query.Query{
			"word":      query.Compile("whale"),
			"not":       query.Compile("whale ~ sea"),
			"adjacency": query.Compile("white ^ whale"),
		}
		for name, q := range queries {
			b.Run(fmt.Sprintf("%s/docs_%d", name, n), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_, _ = Evaluate(q, docs)
				}
			})
		}
	}
}

func TestEvaluateOperatorAsOperand(t *testing.T) {
	docs := corpus("whale ~ sea", "whale sea")

	// NOT takes the "^" as its operand, so nothing is left for ADJACENCY.
	got, err := Evaluate(query.Compile("whale ~ ^"), docs)
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	got, err = Evaluate(query.Compile("whale ^ ~"), docs)
	require.NoError(t, err)
	assert.Equal(t, corpus("whale ~ sea"), got)
}
