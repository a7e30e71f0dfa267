// Package tracing records timed spans through a context. A span started
// under another becomes its child; the root span of a request carries the
// request ID as its trace ID and is logged as a tree when it ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
)

type contextKey struct{}

type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    []any
}

// Start opens a span named name. With a span already in ctx the new one
// is its child; otherwise it is a root whose trace ID is the request ID,
// or a fresh UUID when there is none.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else if id := logger.RequestID(ctx); id != "" {
		span.TraceID = id
	} else {
		span.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span only when ctx already carries one. Without a
// parent it returns ctx and a nil span, whose methods do nothing.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	if FromContext(ctx) == nil {
		return ctx, nil
	}
	return Start(ctx, name)
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

// SetAttr attaches a key/value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes the span and its descendants to l at debug level.
func (s *Span) Log(l *slog.Logger) {
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.log(l, 0)
}

func (s *Span) log(l *slog.Logger, depth int) {
	s.mu.Lock()
	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
		"duration_us", s.Duration.Microseconds(),
	}
	args = append(args, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	l.Debug("span", args...)
	for _, c := range children {
		c.log(l, depth+1)
	}
}
