// Package health runs registered dependency checks concurrently and serves
// the aggregate as liveness and readiness endpoints. Optional backends
// (cache, event bus) report degraded rather than down.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultCheckTimeout = 3 * time.Second

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that probes a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type Checker struct {
	checks       map[string]Check
	mu           sync.RWMutex
	checkTimeout time.Duration
	logger       *slog.Logger
}

type Option func(*Checker)

// WithCheckTimeout bounds each probe. A probe that honours its context
// reports by then.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.checkTimeout = d
		}
	}
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		checks:       make(map[string]Check),
		checkTimeout: defaultCheckTimeout,
		logger:       slog.Default().With("component", "health"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a named health check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run probes every component at once and reports the worst status seen.
// Each probe gets at most the checker's per-check timeout.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	probes := make([]Check, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		probes = append(probes, check)
	}
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(probes))
	var g errgroup.Group
	for i, probe := range probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
			defer cancel()
			began := time.Now()
			res := probe(probeCtx)
			res.Latency = time.Since(began).Round(time.Millisecond).String()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(names)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, name := range names {
		report.Components[name] = results[i]
		report.Status = worse(report.Status, results[i].Status)
	}
	c.logger.Debug("readiness evaluated", "status", report.Status, "components", len(names))
	return report
}

// LiveHandler answers 200 as long as the process can serve HTTP at all.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 only when some component is down. A degraded
// service still takes traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("health response not written", "error", err)
	}
}

// PingCheck adapts a ping function. A failing ping reports failStatus, so
// optional dependencies can pass StatusDegraded. A nil ping means the
// dependency is not configured.
func PingCheck(ping func(ctx context.Context) error, failStatus Status) Check {
	return func(ctx context.Context) ComponentHealth {
		if ping == nil {
			return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
		}
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failStatus, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusDown:
			return 2
		case StatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
