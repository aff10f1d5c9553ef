package mcclient

import (
	"time"

	"github.com/pior/mcclient/meta"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the exchanges with one server. It is satisfied by
// *gobreaker.CircuitBreaker[*meta.Response].
//
// Only I/O failures count against the breaker: responses carrying a status,
// including server error lines, are successes at this level.
type CircuitBreaker interface {
	Execute(req func() (*meta.Response, error)) (*meta.Response, error)
	State() gobreaker.State
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[*meta.Response])(nil)

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker that trips a
// server's breaker once it has seen at least 3 requests with 60% failures
// within interval, and tries again after timeout with maxRequests requests.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		return gobreaker.NewCircuitBreaker[*meta.Response](gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		})
	}
}
