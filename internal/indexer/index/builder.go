package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Build indexes docs concurrently on a pool of workers and returns the
// finished index. A workers value below 1 uses half the CPUs.
func Build(ctx context.Context, docs []Document, workers int) (*MemoryIndex, error) {
	if workers < 1 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating index worker pool: %w", err)
	}
	defer pool.Release()

	start := time.Now()
	idx := NewMemoryIndex()
	var wg sync.WaitGroup
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			idx.AddDocument(doc.ID, doc.Text)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting document %s: %w", doc.ID, err)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	slog.Default().With("component", "index-builder").Debug("index built",
		"documents", len(docs),
		"terms", idx.TermCount(),
		"postings", idx.PostingCount(),
		"workers", workers,
		"elapsed", time.Since(start),
	)
	return idx, nil
}
