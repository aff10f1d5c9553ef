package mcclient

import (
	"context"
	"sync"
	"time"

	"github.com/edwingeng/deque/v2"
	"github.com/pior/mcclient/internal/coarsetime"
)

// NewChannelPool returns the default pool. A buffered channel holds one slot
// per connection that may be checked out; idle connections sit on a stack so
// the most recently used one is handed out first and the others can age out.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		maxSize = 1
	}

	slots := make(chan struct{}, maxSize)
	for range maxSize {
		slots <- struct{}{}
	}

	return &channelPool{
		dial:  constructor,
		slots: slots,
		idle:  deque.NewDeque[*pooledConn](),
	}, nil
}

type channelPool struct {
	dial  func(ctx context.Context) (*Connection, error)
	slots chan struct{}

	mu     sync.Mutex
	idle   *deque.Deque[*pooledConn]
	closed bool

	stats poolStatsCollector
}

// pooledConn is a checked-out connection. It holds one slot until released
// or destroyed.
type pooledConn struct {
	conn     *Connection
	pool     *channelPool
	created  time.Time
	lastUsed time.Time
}

func (c *pooledConn) Value() *Connection { return c.conn }

func (c *pooledConn) Release() {
	c.lastUsed = coarsetime.Now()
	c.pool.checkIn(c)
}

func (c *pooledConn) ReleaseUnused() { c.pool.checkIn(c) }

func (c *pooledConn) Destroy() {
	_ = c.conn.Close()
	c.pool.stats.recordDeactivate()
	c.pool.stats.recordDestroy()
	c.pool.slots <- struct{}{}
}

func (c *pooledConn) CreationTime() time.Time { return c.created }

func (c *pooledConn) IdleDuration() time.Duration { return coarsetime.Now().Sub(c.lastUsed) }

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	if err := p.takeSlot(ctx); err != nil {
		p.stats.recordAcquireError()
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.slots <- struct{}{}
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}
	if p.idle.Len() > 0 {
		pc := p.idle.PopBack()
		p.mu.Unlock()
		p.stats.recordAcquireFromIdle()
		return pc, nil
	}
	p.mu.Unlock()

	conn, err := p.dial(ctx)
	if err != nil {
		p.slots <- struct{}{}
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate()

	now := coarsetime.Now()
	return &pooledConn{conn: conn, pool: p, created: now, lastUsed: now}, nil
}

func (p *channelPool) takeSlot(ctx context.Context) error {
	select {
	case <-p.slots:
		return nil
	default:
	}

	start := time.Now()
	select {
	case <-p.slots:
		p.stats.recordAcquireWait(time.Since(start))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *channelPool) checkIn(pc *pooledConn) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		pc.Destroy()
		return
	}
	p.idle.PushBack(pc)
	p.mu.Unlock()

	p.stats.recordRelease()
	p.slots <- struct{}{}
}

// AcquireAllIdle checks out every idle connection that has a free slot.
func (p *channelPool) AcquireAllIdle() []Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Resource
	for p.idle.Len() > 0 {
		select {
		case <-p.slots:
		default:
			return out
		}
		out = append(out, p.idle.PopBack())
		p.stats.recordAcquireFromIdle()
	}
	return out
}

// Close closes the idle connections. Checked-out connections are closed when
// they come back.
func (p *channelPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var idle []*pooledConn
	for p.idle.Len() > 0 {
		idle = append(idle, p.idle.PopBack())
	}
	p.mu.Unlock()

	for _, pc := range idle {
		_ = pc.conn.Close()
		p.stats.recordIdleDestroy()
		p.stats.recordDestroy()
	}
}

func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
