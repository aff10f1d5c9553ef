package mcclient

import (
	"context"
	"errors"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool returns a Pool backed by jackc/puddle. Puddle destroys
// connections in the background, so DestroyedConns lags Destroy slightly.
func NewPuddlePool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	p := &puddlePool{}

	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err != nil {
				return nil, err
			}
			p.lifecycle.createdConns.Add(1)
			return conn, nil
		},
		Destructor: func(conn *Connection) {
			_ = conn.Close()
			p.lifecycle.destroyedConns.Add(1)
		},
		MaxSize: max(maxSize, 1),
	})
	if err != nil {
		return nil, err
	}

	p.Pool = pool
	return p, nil
}

type puddlePool struct {
	*puddle.Pool[*Connection]

	// puddle does not count creations, destructions or failed dials
	lifecycle poolStatsCollector
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	res, err := p.Pool.Acquire(ctx)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, puddle.ErrClosedPool):
		return nil, ErrPoolClosed
	default:
		if ctx.Err() == nil {
			p.lifecycle.recordAcquireError()
		}
		return nil, err
	}
}

func (p *puddlePool) AcquireAllIdle() []Resource {
	var out []Resource
	for _, res := range p.Pool.AcquireAllIdle() {
		out = append(out, res)
	}
	return out
}

func (p *puddlePool) Stats() PoolStats {
	stat := p.Stat()
	lc := p.lifecycle.snapshot()

	return PoolStats{
		AcquireCount:      uint64(stat.AcquireCount()),
		AcquireWaitCount:  uint64(stat.EmptyAcquireCount()),
		CreatedConns:      lc.CreatedConns,
		DestroyedConns:    lc.DestroyedConns,
		AcquireErrors:     uint64(stat.CanceledAcquireCount()) + lc.AcquireErrors,
		AcquireWaitTimeNs: uint64(stat.EmptyAcquireWaitTime()),
		TotalConns:        stat.TotalResources(),
		IdleConns:         stat.IdleResources(),
		ActiveConns:       stat.AcquiredResources(),
	}
}
