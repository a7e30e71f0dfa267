package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexCounts(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("d1", "the white whale")
	m.AddDocument("d2", "a white sea, a white ship")

	assert.Equal(t, 4, m.TermCount()) // white, whale, sea, ship
	assert.Equal(t, 5, m.PostingCount())
	assert.Equal(t, 2, m.DocCount())

	white := m.Postings("white")
	require.Len(t, white, 2)
	assert.Equal(t, "d1", white[0].DocID)
	assert.Equal(t, 1, white[0].Frequency)
	assert.Equal(t, 2, white[1].Frequency)
	assert.Equal(t, []int{0, 2}, white[1].Positions)
	assert.Nil(t, m.Postings("kraken"))
}

func TestMemoryIndexRemoveDocuments(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("d1", "white whale")
	m.AddDocument("d2", "white sea")

	m.RemoveDocuments("d1", "unknown")
	assert.Equal(t, Stats{Terms: 2, Postings: 2, Documents: 1}, m.Stats())
	assert.Nil(t, m.Postings("whale"))

	m.RemoveDocuments("d2")
	assert.Equal(t, Stats{}, m.Stats())
}

func TestMemoryIndexReAddReplaces(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("d1", "white whale")
	m.AddDocument("d1", "grey sea")
	assert.Equal(t, Stats{Terms: 2, Postings: 2, Documents: 1}, m.Stats())
	assert.Nil(t, m.Postings("whale"))
}

func TestMemoryIndexReset(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("d1", "white whale")
	m.Reset()
	assert.Equal(t, Stats{}, m.Stats())
}

func TestBuild(t *testing.T) {
	docs := make([]Document, 0, 200)
	for i := 0; i < 200; i++ {
		docs = append(docs, Document{ID: fmt.Sprintf("d%d", i), Text: fmt.Sprintf("whale number w%d", i)})
	}
	idx, err := Build(context.Background(), docs, 4)
	require.NoError(t, err)

	seq := NewMemoryIndex()
	for _, d := range docs {
		seq.AddDocument(d.ID, d.Text)
	}
	assert.Equal(t, seq.Stats(), idx.Stats())
	assert.Len(t, idx.Postings("whale"), 200)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, []Document{{ID: "d1", Text: "whale"}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	m := NewMemoryIndex()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.AddDocument(fmt.Sprintf("doc-%d", i), "it is not down in any map; true places never are")
	}
}
