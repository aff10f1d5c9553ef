package mcclient

import (
	"sync/atomic"
	"time"
)

// PoolStats is a snapshot of one connection pool.
//
// TotalConns, IdleConns and ActiveConns are gauges; everything else only grows.
type PoolStats struct {
	AcquireCount      uint64 // acquire attempts
	AcquireWaitCount  uint64 // acquires that waited for a release
	CreatedConns      uint64
	DestroyedConns    uint64
	AcquireErrors     uint64
	AcquireWaitTimeNs uint64

	TotalConns  int32
	IdleConns   int32
	ActiveConns int32
}

// ServerPoolStats pairs a server address with its pool and breaker state.
type ServerPoolStats struct {
	Addr         string
	PoolStats    PoolStats
	BreakerState string // empty without a circuit breaker
}

// ClientStats counts client operations. Batch calls count every item.
type ClientStats struct {
	Gets          uint64 // keys requested by Get and GetMulti
	GetHits       uint64 // keys found
	Stores        uint64 // items sent by the set family
	StoreFailures uint64 // items not stored
	Deletes       uint64
	Arith         uint64 // incr and decr items
	Compressed    uint64 // values stored compressed
	FatalErrors   uint64 // calls aborted by a fatal status
}

type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

func (c *poolStatsCollector) recordCreate() {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
}

func (c *poolStatsCollector) recordDestroy() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
}

func (c *poolStatsCollector) recordActivate() {
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordDeactivate() {
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) recordIdleDestroy() {
	c.idleConns.Add(-1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
	}
}

type clientStatsCollector struct {
	gets          atomic.Uint64
	getHits       atomic.Uint64
	stores        atomic.Uint64
	storeFailures atomic.Uint64
	deletes       atomic.Uint64
	arith         atomic.Uint64
	compressed    atomic.Uint64
	fatalErrors   atomic.Uint64
}

func (c *clientStatsCollector) recordGets(requested, found int) {
	c.gets.Add(uint64(requested))
	c.getHits.Add(uint64(found))
}

func (c *clientStatsCollector) recordStores(result BatchResult, items []storedItem) {
	c.stores.Add(uint64(len(result.Outcomes)))
	c.storeFailures.Add(uint64(len(result.FailedKeys())))
	for i := range result.Outcomes {
		if result.Outcomes[i].Succeeded() && items[i].flags.Compressed() {
			c.compressed.Add(1)
		}
	}
}

func (c *clientStatsCollector) recordDeletes(n int) {
	c.deletes.Add(uint64(n))
}

func (c *clientStatsCollector) recordArith(n int) {
	c.arith.Add(uint64(n))
}

func (c *clientStatsCollector) recordFatal() {
	c.fatalErrors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:          c.gets.Load(),
		GetHits:       c.getHits.Load(),
		Stores:        c.stores.Load(),
		StoreFailures: c.storeFailures.Load(),
		Deletes:       c.deletes.Load(),
		Arith:         c.arith.Load(),
		Compressed:    c.compressed.Load(),
		FatalErrors:   c.fatalErrors.Load(),
	}
}
