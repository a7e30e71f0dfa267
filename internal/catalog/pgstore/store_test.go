package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/postgres"
)

// newTestStore connects to the database named by the PIREX_POSTGRES_*
// variables. Set PIREX_TEST_POSTGRES=1 to run these tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("PIREX_TEST_POSTGRES") == "" {
		t.Skip("PIREX_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := New(client)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Save(ctx, catalog.State{NextOrdinal: 1}))
	return store
}

func TestSaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	added := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := catalog.State{
		NextOrdinal: 4,
		Opi: []catalog.Opus{
			{
				Ordinal: 1, Author: "Herman Melville", Title: "Moby Dick", FilePath: "moby.txt", AddedAt: added,
				Documents: []catalog.Document{
					{ID: "a", OpusOrdinal: 1, Ordinal: 1, Body: "Call me Ishmael."},
					{ID: "b", OpusOrdinal: 1, Ordinal: 2, Body: "The white whale."},
				},
			},
			{
				Ordinal: 3, Author: "Jane Austen", Title: "Emma", AddedAt: added,
				Documents: []catalog.Document{{ID: "c", OpusOrdinal: 3, Ordinal: 1, Body: "Emma Woodhouse."}},
			},
		},
	}
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestSaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, catalog.State{
		NextOrdinal: 2,
		Opi: []catalog.Opus{{
			Ordinal: 1, Author: "A", Title: "T", AddedAt: time.Now().UTC(),
			Documents: []catalog.Document{{ID: "x", OpusOrdinal: 1, Ordinal: 1, Body: "text"}},
		}},
	}))
	require.NoError(t, store.Save(ctx, catalog.State{NextOrdinal: 1}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Opi)
	assert.Equal(t, 1, got.NextOrdinal)
}
