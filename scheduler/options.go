package scheduler

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"shellsched/scheduler/emit"
	"shellsched/scheduler/store"
)

// Option configures a Scheduler at construction time.
//
// Functional options keep New's signature stable as configuration grows:
//
//	traceStore, err := store.NewSQLiteTraceStore("run.db")
//	if err != nil {
//		return err
//	}
//	s, err := scheduler.New(
//		scheduler.WithWorkers(8),
//		scheduler.WithEmitter(emit.NewLogEmitter(os.Stderr, true)), // true: JSON lines
//		scheduler.WithTraceStore(traceStore),
//	)
type Option func(*schedulerConfig) error

type schedulerConfig struct {
	workers  int
	emitter  emit.Emitter
	metrics  *Metrics
	registry prometheus.Registerer
	trace    store.Store
	runID    string
}

func defaultConfig() schedulerConfig {
	return schedulerConfig{
		workers: 4,
		emitter: emit.NewNullEmitter(),
		trace:   store.NewNullStore(),
		runID:   "run",
	}
}

// WithWorkers sets the number of worker goroutines pulling from the
// frontier. Default: 4.
func WithWorkers(n int) Option {
	return func(c *schedulerConfig) error {
		if n < 1 {
			return fmt.Errorf("scheduler: WithWorkers requires n >= 1, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithEmitter routes scheduler observability events to e instead of the
// default NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *schedulerConfig) error {
		if e == nil {
			return fmt.Errorf("scheduler: WithEmitter requires a non-nil Emitter")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection. Pass the result of
// NewMetrics(registry).
func WithMetrics(m *Metrics) Option {
	return func(c *schedulerConfig) error {
		c.metrics = m
		return nil
	}
}

// WithRegistry registers a fresh Metrics collector against registry and
// enables it, equivalent to WithMetrics(NewMetrics(registry)). Passing
// nil uses prometheus.DefaultRegisterer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *schedulerConfig) error {
		c.registry = registry
		c.metrics = NewMetrics(registry)
		return nil
	}
}

// WithTraceStore persists every dispatched node's completion record to s,
// enabling post-mortem replay (see replay.go). Default: a NullStore.
func WithTraceStore(s store.Store) Option {
	return func(c *schedulerConfig) error {
		if s == nil {
			return fmt.Errorf("scheduler: WithTraceStore requires a non-nil Store")
		}
		c.trace = s
		return nil
	}
}

// WithRunID sets the identifier stamped on every emitted Event and
// trace Record. Default: "run".
func WithRunID(id string) Option {
	return func(c *schedulerConfig) error {
		if id == "" {
			return fmt.Errorf("scheduler: WithRunID requires a non-empty id")
		}
		c.runID = id
		return nil
	}
}
