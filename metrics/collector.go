// Package metrics exposes mcclient counters to Prometheus.
package metrics

import (
	"github.com/pior/mcclient"
	"github.com/prometheus/client_golang/prometheus"
)

// Source is what the Collector reads on every scrape. *mcclient.Client
// satisfies it.
type Source interface {
	Stats() mcclient.ClientStats
	PoolStats() []mcclient.ServerPoolStats
}

var _ Source = (*mcclient.Client)(nil)

// Collector is a prometheus.Collector over a client's stats. Values are read
// at scrape time; nothing is recorded in between.
type Collector struct {
	source Source

	ops         *prometheus.Desc
	getHits     *prometheus.Desc
	failures    *prometheus.Desc
	compressed  *prometheus.Desc
	fatalErrors *prometheus.Desc

	poolConns     *prometheus.Desc
	poolCreated   *prometheus.Desc
	poolDestroyed *prometheus.Desc
	poolAcquires  *prometheus.Desc
	poolErrors    *prometheus.Desc
	poolWait      *prometheus.Desc
	breakerState  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector for source. Register it with
// prometheus.MustRegister or a custom registry.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,

		ops: prometheus.NewDesc(
			"mcclient_operations_total",
			"Items processed, by operation",
			[]string{"op"}, nil,
		),
		getHits: prometheus.NewDesc(
			"mcclient_get_hits_total",
			"Keys found by get operations",
			nil, nil,
		),
		failures: prometheus.NewDesc(
			"mcclient_store_failures_total",
			"Items the server did not store",
			nil, nil,
		),
		compressed: prometheus.NewDesc(
			"mcclient_compressed_stores_total",
			"Values stored compressed",
			nil, nil,
		),
		fatalErrors: prometheus.NewDesc(
			"mcclient_fatal_errors_total",
			"Calls aborted by a fatal status",
			nil, nil,
		),

		poolConns: prometheus.NewDesc(
			"mcclient_pool_connections",
			"Connection pool statistics",
			[]string{"server", "state"}, nil, // total, active, idle
		),
		poolCreated: prometheus.NewDesc(
			"mcclient_pool_connections_created_total",
			"Connections created",
			[]string{"server"}, nil,
		),
		poolDestroyed: prometheus.NewDesc(
			"mcclient_pool_connections_destroyed_total",
			"Connections destroyed",
			[]string{"server"}, nil,
		),
		poolAcquires: prometheus.NewDesc(
			"mcclient_pool_acquires_total",
			"Connection acquire attempts",
			[]string{"server"}, nil,
		),
		poolErrors: prometheus.NewDesc(
			"mcclient_pool_acquire_errors_total",
			"Failed connection acquires",
			[]string{"server"}, nil,
		),
		poolWait: prometheus.NewDesc(
			"mcclient_pool_acquire_wait_seconds_total",
			"Time spent waiting for a free connection",
			[]string{"server"}, nil,
		),
		breakerState: prometheus.NewDesc(
			"mcclient_circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=half-open, 2=open)",
			[]string{"server"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ops
	ch <- c.getHits
	ch <- c.failures
	ch <- c.compressed
	ch <- c.fatalErrors
	ch <- c.poolConns
	ch <- c.poolCreated
	ch <- c.poolDestroyed
	ch <- c.poolAcquires
	ch <- c.poolErrors
	ch <- c.poolWait
	ch <- c.breakerState
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.ops, s.Gets, "get")
	counter(c.ops, s.Stores, "store")
	counter(c.ops, s.Deletes, "delete")
	counter(c.ops, s.Arith, "arith")
	counter(c.getHits, s.GetHits)
	counter(c.failures, s.StoreFailures)
	counter(c.compressed, s.Compressed)
	counter(c.fatalErrors, s.FatalErrors)

	for _, sp := range c.source.PoolStats() {
		ps := sp.PoolStats

		ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(ps.TotalConns), sp.Addr, "total")
		ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(ps.ActiveConns), sp.Addr, "active")
		ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(ps.IdleConns), sp.Addr, "idle")

		counter(c.poolCreated, ps.CreatedConns, sp.Addr)
		counter(c.poolDestroyed, ps.DestroyedConns, sp.Addr)
		counter(c.poolAcquires, ps.AcquireCount, sp.Addr)
		counter(c.poolErrors, ps.AcquireErrors, sp.Addr)
		ch <- prometheus.MustNewConstMetric(c.poolWait, prometheus.CounterValue, float64(ps.AcquireWaitTimeNs)/1e9, sp.Addr)

		if state, ok := breakerStateValue(sp.BreakerState); ok {
			ch <- prometheus.MustNewConstMetric(c.breakerState, prometheus.GaugeValue, state, sp.Addr)
		}
	}
}

// breakerStateValue maps gobreaker state names to the gauge value.
func breakerStateValue(state string) (float64, bool) {
	switch state {
	case "closed":
		return 0, true
	case "half-open":
		return 1, true
	case "open":
		return 2, true
	default:
		return 0, false
	}
}
