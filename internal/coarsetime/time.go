// Package coarsetime serves a clock refreshed every 50ms, for hot paths that
// only need approximate timestamps (connection idle and lifetime checks).
package coarsetime

import (
	"sync/atomic"
	"time"
)

const tick = 50 * time.Millisecond

var now atomic.Pointer[time.Time]

func init() {
	store(time.Now())

	ticker := time.NewTicker(tick)
	go func() {
		for t := range ticker.C {
			store(t)
		}
	}()
}

func store(t time.Time) {
	now.Store(&t)
}

// Now returns the last refreshed time. It lags the wall clock by at most one tick.
func Now() time.Time {
	return *now.Load()
}
