package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a Prometheus-compatible metrics collector for scheduler
// execution. All metrics are namespaced "shsched_".
//
//  1. frontier_depth (gauge): nodes currently parked at the frontier.
//  2. active_workers (gauge): workers currently dispatched to a node.
//  3. dispatch_latency_ms (histogram): time a node spends in-flight,
//     from dispatch to Complete.
//  4. write_collisions_total (counter): WriteCollision conflicts found
//     by depAdd.
//  5. concurrent_reads_total (counter): ConcurrentRead conflicts found
//     by depAdd.
//  6. cancellations_total (counter): nodes pruned by break/continue.
//
// A nil *Metrics is valid and every method becomes a no-op, so a caller
// that never configures one (the WithMetrics option's default) pays
// nothing.
type Metrics struct {
	frontierDepth prometheus.Gauge
	activeWorkers prometheus.Gauge

	dispatchLatency *prometheus.HistogramVec

	writeCollisions prometheus.Counter
	concurrentReads prometheus.Counter
	cancellations   prometheus.Counter

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics creates and registers every scheduler metric with registry.
// Passing nil registers against prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		frontierDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shsched",
			Name:      "frontier_depth",
			Help:      "Current number of FrontierNodes parked at the frontier",
		}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shsched",
			Name:      "active_workers",
			Help:      "Workers currently executing a dispatched node",
		}),
		dispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shsched",
			Name:      "dispatch_latency_ms",
			Help:      "Time a node spends dispatched to a worker, in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id"}),
		writeCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shsched",
			Name:      "write_collisions_total",
			Help:      "Total WriteCollision conflicts found while adding graph dependency edges",
		}),
		concurrentReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shsched",
			Name:      "concurrent_reads_total",
			Help:      "Total ConcurrentRead conflicts found while adding graph dependency edges",
		}),
		cancellations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shsched",
			Name:      "cancellations_total",
			Help:      "Total nodes pruned by break/continue cancellation",
		}),
	}
}

func (m *Metrics) setFrontierDepth(n int) {
	if m == nil {
		return
	}
	m.frontierDepth.Set(float64(n))
}

func (m *Metrics) incActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

func (m *Metrics) decActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

func (m *Metrics) observeDispatchLatencyMs(nodeID string, ms float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.WithLabelValues(nodeID).Observe(ms)
}

func (m *Metrics) incConflict(kind ConflictKind) {
	if m == nil {
		return
	}
	switch kind {
	case WriteCollision:
		m.writeCollisions.Inc()
	case ConcurrentRead:
		m.concurrentReads.Inc()
	}
}

func (m *Metrics) incCancellations(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations.Add(float64(n))
}
