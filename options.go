package mcclient

import (
	"math"
	"time"
)

type options struct {
	ttl               uint32
	compressThreshold int
	prefix            string
}

// Option customizes one call.
type Option func(*options)

// WithTTL sets the expiration. Zero means never; sub-second durations round
// up to one second. TTLs over 30 days are sent as an absolute time.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttlSeconds(ttl)
	}
}

// WithCompressThreshold compresses values of at least n encoded bytes.
// Zero disables compression for the call.
func WithCompressThreshold(n int) Option {
	return func(o *options) {
		o.compressThreshold = n
	}
}

// WithKeyPrefix prepends prefix to every key on the wire. Keys reported back
// never carry it.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func (c *Client) buildOptions(opts []Option) options {
	o := options{compressThreshold: c.compressThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// maxRelativeTTL is the longest expiration memcached reads as relative.
// Larger values are Unix timestamps.
const maxRelativeTTL = 30 * 24 * 60 * 60

// ttlSeconds converts d to a memcached expiration, switching to an absolute
// timestamp past maxRelativeTTL.
func ttlSeconds(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	if secs > maxRelativeTTL {
		secs += time.Now().Unix()
	}
	if secs > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(secs)
}
