// Package pgstore persists the catalog in PostgreSQL. Each save replaces
// the stored library in a single transaction.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/postgres"
)

type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

func New(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "pg-store"),
	}
}

// Migrate creates the library tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating library schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Save replaces the stored library with state.
func (s *Store) Save(ctx context.Context, state catalog.State) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pirex_documents`); err != nil {
			return fmt.Errorf("clearing documents: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pirex_opi`); err != nil {
			return fmt.Errorf("clearing opi: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pirex_library (id, next_ordinal, saved_at) VALUES (1, $1, now())
			ON CONFLICT (id) DO UPDATE SET next_ordinal = EXCLUDED.next_ordinal, saved_at = EXCLUDED.saved_at`,
			state.NextOrdinal,
		); err != nil {
			return fmt.Errorf("saving library header: %w", err)
		}
		if err := copyRows(ctx, tx, pq.CopyIn("pirex_opi", "ordinal", "author", "title", "file_path", "added_at"),
			len(state.Opi), func(i int) []any {
				o := state.Opi[i]
				return []any{o.Ordinal, o.Author, o.Title, o.FilePath, o.AddedAt}
			}); err != nil {
			return fmt.Errorf("copying opi: %w", err)
		}

		docs := make([]catalog.Document, 0, state.NumDocuments())
		for _, o := range state.Opi {
			docs = append(docs, o.Documents...)
		}
		if err := copyRows(ctx, tx, pq.CopyIn("pirex_documents", "id", "opus_ordinal", "ordinal", "body"),
			len(docs), func(i int) []any {
				d := docs[i]
				return []any{d.ID, d.OpusOrdinal, d.Ordinal, d.Body}
			}); err != nil {
			return fmt.Errorf("copying documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving library: %w", err)
	}
	s.logger.Debug("library saved", "opi", len(state.Opi), "documents", state.NumDocuments())
	return nil
}

func copyRows(ctx context.Context, tx *sql.Tx, copyStmt string, n int, row func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	// An argument-less Exec flushes the COPY buffer.
	_, err = stmt.ExecContext(ctx)
	return err
}

// Load reads the stored library. An empty database is an empty library.
func (s *Store) Load(ctx context.Context) (catalog.State, error) {
	var state catalog.State
	err := s.client.DB.QueryRowContext(ctx, `SELECT next_ordinal FROM pirex_library WHERE id = 1`).Scan(&state.NextOrdinal)
	if err == sql.ErrNoRows {
		return catalog.State{}, nil
	}
	if err != nil {
		return catalog.State{}, fmt.Errorf("loading library header: %w", err)
	}

	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT ordinal, author, title, file_path, added_at FROM pirex_opi ORDER BY ordinal`)
	if err != nil {
		return catalog.State{}, fmt.Errorf("querying opi: %w", err)
	}
	byOrdinal := make(map[int]int)
	for rows.Next() {
		var o catalog.Opus
		if err := rows.Scan(&o.Ordinal, &o.Author, &o.Title, &o.FilePath, &o.AddedAt); err != nil {
			rows.Close()
			return catalog.State{}, fmt.Errorf("scanning opus: %w", err)
		}
		o.AddedAt = o.AddedAt.UTC()
		byOrdinal[o.Ordinal] = len(state.Opi)
		state.Opi = append(state.Opi, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return catalog.State{}, fmt.Errorf("iterating opi: %w", err)
	}

	rows, err = s.client.DB.QueryContext(ctx,
		`SELECT id, opus_ordinal, ordinal, body FROM pirex_documents ORDER BY opus_ordinal, ordinal`)
	if err != nil {
		return catalog.State{}, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d catalog.Document
		if err := rows.Scan(&d.ID, &d.OpusOrdinal, &d.Ordinal, &d.Body); err != nil {
			return catalog.State{}, fmt.Errorf("scanning document: %w", err)
		}
		i, ok := byOrdinal[d.OpusOrdinal]
		if !ok {
			continue
		}
		state.Opi[i].Documents = append(state.Opi[i].Documents, d)
	}
	if err := rows.Err(); err != nil {
		return catalog.State{}, fmt.Errorf("iterating documents: %w", err)
	}
	s.logger.Info("library loaded", "opi", len(state.Opi), "documents", state.NumDocuments())
	return state, nil
}
