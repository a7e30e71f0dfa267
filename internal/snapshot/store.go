package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
)

// Store saves and loads the library file in a fixed directory.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewStore(dir string) *Store {
	path := PathIn(dir)
	return &Store{
		path:   path,
		logger: slog.Default().With("component", "snapshot-store", "path", path),
	}
}

func (s *Store) Path() string { return s.path }

// Save writes state to the library file. Concurrent saves are serialised.
func (s *Store) Save(ctx context.Context, state catalog.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("saving library: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Write(s.path, state); err != nil {
		return err
	}
	s.logger.Debug("library saved", "opi", len(state.Opi), "documents", state.NumDocuments())
	return nil
}

// Load reads the library file. A missing file is an empty library.
func (s *Store) Load(ctx context.Context) (catalog.State, error) {
	if err := ctx.Err(); err != nil {
		return catalog.State{}, fmt.Errorf("loading library: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, header, err := Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no library file, starting empty")
		return catalog.State{}, nil
	}
	if err != nil {
		return catalog.State{}, err
	}
	s.logger.Info("library loaded",
		"opi", header.OpusCount,
		"documents", header.DocCount,
		"created_at", header.CreatedAt,
	)
	return state, nil
}
