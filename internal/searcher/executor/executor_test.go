package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/stopwords"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/tracing"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	_, err := c.Add(catalog.Submission{
		Author: "Herman Melville",
		Title:  "Moby Dick",
		Documents: []string{
			"Call me Ishmael.",
			"The white whale swam in the grey sea.",
			"A whale ship sailed from Nantucket.",
		},
	})
	require.NoError(t, err)
	_, err = c.Add(catalog.Submission{
		Author:    "Henry David Thoreau",
		Title:     "Walden",
		Documents: []string{"I went to the woods by the sea."},
	})
	require.NoError(t, err)
	return c
}

func TestExecute(t *testing.T) {
	exec := New(newTestCatalog(t))

	result, err := exec.Execute(context.Background(), "Whale", 10)
	require.NoError(t, err)
	assert.Equal(t, "Whale", result.Query)
	assert.False(t, result.Advanced)
	assert.Equal(t, []query.Token{{Text: "whale", Kind: query.KindWord}}, result.Terms)
	assert.Equal(t, 2, result.TotalHits)
	require.Len(t, result.Results, 2)

	first := result.Results[0]
	assert.Equal(t, 1, first.OpusOrdinal)
	assert.Equal(t, 2, first.DocOrdinal)
	assert.Equal(t, "Herman Melville", first.Author)
	assert.Equal(t, "Moby Dick", first.Title)
	assert.Equal(t, "The white whale swam in the grey sea.", first.Preview)
	assert.NotEmpty(t, first.DocID)
}

func TestExecuteAcrossOpi(t *testing.T) {
	exec := New(newTestCatalog(t))

	result, err := exec.Execute(context.Background(), "sea ~ whale", 0)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Walden", result.Results[0].Title)

	result, err = exec.Execute(context.Background(), "whale ^ ship", 0)
	require.NoError(t, err)
	assert.True(t, result.Advanced)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 3, result.Results[0].DocOrdinal)
}

func TestExecuteLimit(t *testing.T) {
	exec := New(newTestCatalog(t))
	result, err := exec.Execute(context.Background(), "the", 0)
	require.NoError(t, err)
	assert.Zero(t, result.TotalHits, "stop word only query is empty")

	result, err = exec.Execute(context.Background(), "e", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalHits)
	assert.Len(t, result.Results, 2)
}

func TestExecuteEmptyQuery(t *testing.T) {
	exec := New(newTestCatalog(t))
	result, err := exec.Execute(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalHits, "the single empty word matches every document")
	require.Len(t, result.Terms, 1)
	assert.Equal(t, query.KindWord, result.Terms[0].Kind)

	result, err = exec.Execute(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Zero(t, result.TotalHits)
	assert.NotNil(t, result.Results)
	assert.Empty(t, result.Terms)
}

func TestExecuteMalformed(t *testing.T) {
	exec := New(newTestCatalog(t))
	_, err := exec.Execute(context.Background(), "whale ~", 10)
	assert.ErrorIs(t, err, apperrors.ErrMalformedQuery)
}

func TestExecuteCancelled(t *testing.T) {
	exec := New(newTestCatalog(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.Execute(ctx, "whale", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteStrictEmpty(t *testing.T) {
	c := newTestCatalog(t)

	compat, err := New(c).Execute(context.Background(), "kraken whale", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, compat.TotalHits)

	strict, err := New(c, WithStrictEmpty(true)).Execute(context.Background(), "kraken whale", 0)
	require.NoError(t, err)
	assert.Zero(t, strict.TotalHits)
}

func TestExecuteCustomCompiler(t *testing.T) {
	exec := New(newTestCatalog(t), WithCompiler(query.NewCompiler(stopwords.New("whale"))))
	result, err := exec.Execute(context.Background(), "whale", 0)
	require.NoError(t, err)
	assert.Zero(t, result.TotalHits)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", preview("anything", 0))
	assert.Equal(t, "short text", preview("short\n\ttext", 20))

	long := strings.Repeat("whale ", 20)
	got := preview(long, 30)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 33)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "..."), " "))
}

func TestExecuteRecordsSpans(t *testing.T) {
	exec := New(newTestCatalog(t))
	ctx, root := tracing.Start(context.Background(), "search")

	_, err := exec.Execute(ctx, "whale ~ ship", 0)
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "compile", children[0].Name)
	assert.Equal(t, "evaluate", children[1].Name)
	assert.Equal(t, root.TraceID, children[1].TraceID)
}
