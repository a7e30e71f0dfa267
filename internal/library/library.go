// Package library is the model root of PIREX. It owns the catalog and the
// query executor, and after every mutation it persists the catalog, tells
// other replicas, and drops cached search results.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog/loader"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/resilience"
)

const defaultPersistTimeout = 30 * time.Second

// Persister stores and retrieves the whole catalog.
type Persister interface {
	Save(ctx context.Context, state catalog.State) error
	Load(ctx context.Context) (catalog.State, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type Option func(*Library)

// WithPersister saves the catalog to p after each mutation. backend labels
// failure metrics.
func WithPersister(p Persister, backend string) Option {
	return func(l *Library) {
		l.store = p
		l.backend = backend
	}
}

func WithEvents(p EventPublisher) Option {
	return func(l *Library) { l.events = p }
}

func WithCache(c CacheInvalidator) Option {
	return func(l *Library) { l.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Library) { l.metrics = m }
}

func WithExecutorOptions(opts ...executor.Option) Option {
	return func(l *Library) { l.execOpts = append(l.execOpts, opts...) }
}

func WithIndexWorkers(n int) Option {
	return func(l *Library) { l.indexWorkers = n }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(l *Library) { l.persistTimeout = d }
}

type Library struct {
	catalog        *catalog.Catalog
	exec           *executor.Executor
	execOpts       []executor.Option
	store          Persister
	backend        string
	events         EventPublisher
	cache          CacheInvalidator
	metrics        *metrics.Metrics
	indexWorkers   int
	persistTimeout time.Duration
	persistMu      sync.Mutex
	instanceID     string
	logger         *slog.Logger
}

func New(opts ...Option) *Library {
	l := &Library{
		catalog:        catalog.New(),
		indexWorkers:   4,
		persistTimeout: defaultPersistTimeout,
		instanceID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.exec = executor.New(l.catalog, l.execOpts...)
	l.logger = slog.Default().With("component", "library", "instance", l.instanceID)
	return l
}

// InstanceID identifies this library in the catalog events it publishes.
func (l *Library) InstanceID() string { return l.instanceID }

// Open restores the catalog from the persister, if there is one.
func (l *Library) Open(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	state, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}
	if err := l.catalog.Restore(ctx, state, l.indexWorkers); err != nil {
		return fmt.Errorf("restoring library: %w", err)
	}
	l.observeSize()
	return nil
}

// AddOpus catalogs sub and returns its load summary.
func (l *Library) AddOpus(ctx context.Context, sub catalog.Submission) (catalog.LoadSummary, error) {
	summary, err := l.catalog.Add(sub)
	if err != nil {
		return catalog.LoadSummary{}, err
	}
	l.afterMutation(ctx, CatalogEvent{
		Type:      EventOpusAdded,
		Ordinal:   summary.Ordinal,
		Author:    summary.Author,
		Title:     summary.Title,
		Documents: summary.Documents,
	})
	return summary, nil
}

// AddFile extracts the documents of the work at path and catalogs it.
func (l *Library) AddFile(ctx context.Context, author, title, path string) (catalog.LoadSummary, error) {
	docs, err := loader.LoadFile(path)
	if err != nil {
		return catalog.LoadSummary{}, err
	}
	return l.AddOpus(ctx, catalog.Submission{
		Author:    author,
		Title:     title,
		FilePath:  path,
		Documents: docs,
	})
}

func (l *Library) RemoveOpus(ctx context.Context, ordinal int) error {
	if err := l.catalog.Remove(ordinal); err != nil {
		return err
	}
	l.afterMutation(ctx, CatalogEvent{Type: EventOpusRemoved, Ordinal: ordinal})
	return nil
}

func (l *Library) Purge(ctx context.Context) {
	l.catalog.Purge()
	l.afterMutation(ctx, CatalogEvent{Type: EventCatalogPurged})
}

// Search runs raw against the current catalog. See executor.Execute for
// the meaning of limit.
func (l *Library) Search(ctx context.Context, raw string, limit int) (*executor.SearchResult, error) {
	return l.exec.Execute(ctx, raw, limit)
}

func (l *Library) Compile(raw string) *query.Query { return l.exec.Compile(raw) }

func (l *Library) Generation() uint64 { return l.catalog.Generation() }

func (l *Library) Summary() string { return l.catalog.Summary() }

func (l *Library) Stats() catalog.Stats { return l.catalog.Stats() }

func (l *Library) Opi() []catalog.Opus { return l.catalog.Opi() }

func (l *Library) Opus(ordinal int) (catalog.Opus, error) { return l.catalog.Opus(ordinal) }

func (l *Library) Documents() []catalog.Document { return l.catalog.Documents() }

// HandleCatalogEvent reacts to a mutation made by another replica: it
// reloads the shared store and drops cached results. Events from this
// instance are ignored.
func (l *Library) HandleCatalogEvent(ctx context.Context, event CatalogEvent) error {
	if event.Origin == l.instanceID {
		return nil
	}
	l.logger.Info("catalog changed elsewhere", "type", event.Type, "origin", event.Origin, "ordinal", event.Ordinal)
	if l.store != nil {
		if err := l.Open(ctx); err != nil {
			return err
		}
	}
	l.invalidateCache(ctx)
	return nil
}

func (l *Library) afterMutation(ctx context.Context, event CatalogEvent) {
	event.Generation = l.catalog.Generation()
	event.Origin = l.instanceID
	event.Timestamp = time.Now().UTC()

	l.observeSize()
	if l.metrics != nil {
		l.metrics.CatalogEventsTotal.WithLabelValues(string(event.Type)).Inc()
	}
	l.persist(ctx)
	l.invalidateCache(ctx)
	l.publish(ctx, event)
}

// persist saves the current catalog. Failures are logged and counted; the
// in-memory mutation stands.
func (l *Library) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	state := l.catalog.Snapshot()
	err := resilience.WithTimeout(ctx, l.persistTimeout, "persist library", func(ctx context.Context) error {
		return l.store.Save(ctx, state)
	})
	if err != nil {
		l.logger.Error("persisting library failed", "backend", l.backend, "error", err)
		if l.metrics != nil {
			l.metrics.PersistFailuresTotal.WithLabelValues(l.backend).Inc()
		}
	}
}

func (l *Library) invalidateCache(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if _, err := l.cache.Invalidate(ctx); err != nil {
		l.logger.Warn("cache invalidation failed", "error", err)
	}
}

func (l *Library) publish(ctx context.Context, event CatalogEvent) {
	if l.events == nil {
		return
	}
	err := l.events.Publish(ctx, kafka.Event{
		Key:   strconv.Itoa(event.Ordinal),
		Type:  string(event.Type),
		Value: event,
	})
	if err != nil {
		l.logger.Warn("publishing catalog event failed", "type", event.Type, "error", err)
	}
}

func (l *Library) observeSize() {
	if l.metrics == nil {
		return
	}
	s := l.catalog.Stats()
	l.metrics.SetCatalogSize(s.Opi, s.Documents, s.Terms, s.Postings)
}
