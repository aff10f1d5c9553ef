package mcclient

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the client configuration. The zero value is usable.
type Config struct {
	// MaxSize is the maximum number of connections per server.
	// Defaults to 2.
	MaxSize int32

	// Timeout bounds the network I/O of a call when its context has no
	// deadline. Zero means no limit.
	Timeout time.Duration

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are checked.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer opens new connections. Defaults to a zero net.Dialer.
	Dialer *net.Dialer

	// Pool builds the per-server pools. Defaults to NewChannelPool;
	// NewPuddlePool is the alternative.
	Pool PoolFactory

	// SelectServer maps a key to a server address. Defaults to
	// DefaultSelectServer; NewRingSelector() is the alternative.
	SelectServer SelectServerFunc

	// NewCircuitBreaker creates the breaker of a server, once per address.
	// Nil disables circuit breaking.
	NewCircuitBreaker func(addr string) CircuitBreaker

	// CompressThreshold is the default for WithCompressThreshold.
	// Zero disables compression.
	CompressThreshold int

	// BlobCodec serializes values that are not bytes, integers or booleans.
	// Defaults to GobBlobCodec.
	BlobCodec BlobCodec

	// Logger receives debug and warning events. Defaults to zerolog.Nop().
	Logger *zerolog.Logger

	// for testing purposes only
	dial func(ctx context.Context, addr string) (*Connection, error)
}

func (config Config) withDefaults() Config {
	if config.MaxSize <= 0 {
		config.MaxSize = 2
	}
	if config.Dialer == nil {
		config.Dialer = &net.Dialer{}
	}
	if config.Pool == nil {
		config.Pool = NewChannelPool
	}
	if config.SelectServer == nil {
		config.SelectServer = DefaultSelectServer
	}
	if config.BlobCodec == nil {
		config.BlobCodec = GobBlobCodec{}
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	return config
}

// Client is a typed memcached client. Values are tagged with their kind so a
// Get returns the same category of value that was stored.
//
// A Client serializes its calls: concurrent callers wait for each other. Use
// Clone to get an independent Client for parallel work.
type Client struct {
	config            Config
	codec             *Codec
	compressThreshold int
	log               zerolog.Logger
	stats             *clientStatsCollector

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// New creates a client for servers using the default ClusterConn.
func New(servers Servers, config Config) (*Client, error) {
	config = config.withDefaults()
	if err := checkCompressThreshold(config.CompressThreshold); err != nil {
		return nil, err
	}

	conn, err := NewClusterConn(servers, config)
	if err != nil {
		return nil, err
	}
	return NewWithConn(conn, config)
}

// NewWithConn creates a client over an existing Conn. The client owns conn.
func NewWithConn(conn Conn, config Config) (*Client, error) {
	config = config.withDefaults()
	if err := checkCompressThreshold(config.CompressThreshold); err != nil {
		return nil, err
	}

	return &Client{
		config:            config,
		codec:             NewCodec(config.BlobCodec),
		compressThreshold: config.CompressThreshold,
		log:               config.Logger.With().Str("layer", "mcclient").Logger(),
		stats:             &clientStatsCollector{},
		conn:              conn,
	}, nil
}

// with runs fn while holding the connection exclusively.
func (c *Client) with(fn func(conn Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	return fn(c.conn)
}

func (c *Client) recordFatal(err error) {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		c.stats.recordFatal()
	}
}

// =============================================================================
// Retrieval
// =============================================================================

// Get returns the value of key. A missing key, or an empty one, is ok=false.
func (c *Client) Get(ctx context.Context, key string, opts ...Option) (Value, bool, error) {
	results, err := c.GetMulti(ctx, []string{key}, opts...)
	if err != nil {
		return Value{}, false, err
	}
	v, ok := results[key]
	return v, ok, nil
}

// GetMulti returns the values of the keys that exist. Missing keys are absent
// from the map.
func (c *Client) GetMulti(ctx context.Context, keys []string, opts ...Option) (map[string]Value, error) {
	o := c.buildOptions(opts)

	var results map[string]Value
	err := c.with(func(conn Conn) error {
		var err error
		results, err = fetchMulti(ctx, conn, c.codec, keys, o.prefix)
		return err
	})
	if err != nil {
		c.recordFatal(err)
		return nil, err
	}

	c.stats.recordGets(len(keys), len(results))
	return results, nil
}

// =============================================================================
// Storage
// =============================================================================

// Set stores value under key. It reports false when the server did not store it.
func (c *Client) Set(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.storeOne(ctx, ModeSet, key, value, opts)
}

// Add stores value only if key does not exist.
func (c *Client) Add(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.storeOne(ctx, ModeAdd, key, value, opts)
}

// Replace stores value only if key exists.
func (c *Client) Replace(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.storeOne(ctx, ModeReplace, key, value, opts)
}

// Append adds value after the existing data of key. The flags of the
// existing item are kept, so only raw values should be appended to.
func (c *Client) Append(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.storeOne(ctx, ModeAppend, key, value, opts)
}

// Prepend adds value before the existing data of key.
func (c *Client) Prepend(ctx context.Context, key string, value any, opts ...Option) (bool, error) {
	return c.storeOne(ctx, ModePrepend, key, value, opts)
}

// SetMulti stores every item and returns the keys that were not stored.
// On a fatal error the returned *BatchError holds the outcomes so far.
func (c *Client) SetMulti(ctx context.Context, items []Item, opts ...Option) ([]string, error) {
	result, err := c.Store(ctx, ModeSet, items, opts...)
	if err != nil {
		return nil, err
	}
	return result.FailedKeys(), nil
}

// AddMulti is SetMulti with add semantics.
func (c *Client) AddMulti(ctx context.Context, items []Item, opts ...Option) ([]string, error) {
	result, err := c.Store(ctx, ModeAdd, items, opts...)
	if err != nil {
		return nil, err
	}
	return result.FailedKeys(), nil
}

// Store runs a batch of mode over items and returns every outcome. Items are
// encoded before anything is sent: an invalid key or value fails the call
// with nothing written.
func (c *Client) Store(ctx context.Context, mode StoreMode, items []Item, opts ...Option) (BatchResult, error) {
	o := c.buildOptions(opts)
	if err := checkCompressThreshold(o.compressThreshold); err != nil {
		return BatchResult{}, err
	}

	prepared, err := prepareStore(c.codec, items, o, c.log)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	err = c.with(func(conn Conn) error {
		var err error
		result, err = runStore(ctx, conn, mode, prepared, c.log)
		return err
	})

	c.stats.recordStores(result, prepared)
	if err != nil {
		c.recordFatal(err)
	}
	return result, err
}

func (c *Client) storeOne(ctx context.Context, mode StoreMode, key string, value any, opts []Option) (bool, error) {
	result, err := c.Store(ctx, mode, []Item{{Key: key, Value: value}}, opts...)
	if err != nil {
		return false, err
	}
	return result.AllSucceeded(), nil
}

// =============================================================================
// Deletion
// =============================================================================

// Delete removes key. With WithTTL the item is marked stale and expires after
// the TTL; Get reports it missing right away. It reports false when the key
// did not exist.
func (c *Client) Delete(ctx context.Context, key string, opts ...Option) (bool, error) {
	return c.DeleteMulti(ctx, []string{key}, opts...)
}

// DeleteMulti removes every key and reports whether all of them existed.
func (c *Client) DeleteMulti(ctx context.Context, keys []string, opts ...Option) (bool, error) {
	o := c.buildOptions(opts)

	items, err := prepareKeys(keys, o.prefix)
	if err != nil {
		return false, err
	}

	var result BatchResult
	err = c.with(func(conn Conn) error {
		var err error
		result, err = runDelete(ctx, conn, items, o.ttl, c.log)
		return err
	})

	c.stats.recordDeletes(len(result.Outcomes))
	if err != nil {
		c.recordFatal(err)
		return false, err
	}
	return result.AllSucceeded(), nil
}

// =============================================================================
// Arithmetic
// =============================================================================

// Incr adds delta to the counter at key and returns the new value. A missing
// key is ok=false; the counter is not created.
func (c *Client) Incr(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, bool, error) {
	return c.arithOne(ctx, ModeIncrement, key, delta, opts)
}

// Decr subtracts delta from the counter at key. The server stops at zero.
func (c *Client) Decr(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, bool, error) {
	return c.arithOne(ctx, ModeDecrement, key, delta, opts)
}

// IncrMulti increments every key by delta and returns the new values of the
// counters that exist.
func (c *Client) IncrMulti(ctx context.Context, keys []string, delta uint64, opts ...Option) (map[string]uint64, error) {
	return c.arithMulti(ctx, ModeIncrement, keys, delta, opts)
}

// DecrMulti is IncrMulti for decrements.
func (c *Client) DecrMulti(ctx context.Context, keys []string, delta uint64, opts ...Option) (map[string]uint64, error) {
	return c.arithMulti(ctx, ModeDecrement, keys, delta, opts)
}

func (c *Client) arithOne(ctx context.Context, mode ArithMode, key string, delta uint64, opts []Option) (uint64, bool, error) {
	result, err := c.Arith(ctx, mode, []string{key}, delta, opts...)
	if err != nil {
		return 0, false, err
	}
	outcome := result.Outcomes[0]
	return outcome.Value, outcome.Succeeded(), nil
}

func (c *Client) arithMulti(ctx context.Context, mode ArithMode, keys []string, delta uint64, opts []Option) (map[string]uint64, error) {
	result, err := c.Arith(ctx, mode, keys, delta, opts...)
	if err != nil {
		return nil, err
	}

	values := make(map[string]uint64, len(result.Outcomes))
	for _, o := range result.Outcomes {
		if o.Succeeded() {
			values[o.Key] = o.Value
		}
	}
	return values, nil
}

// Arith runs a batch of increments or decrements and returns every outcome.
func (c *Client) Arith(ctx context.Context, mode ArithMode, keys []string, delta uint64, opts ...Option) (BatchResult, error) {
	o := c.buildOptions(opts)

	items, err := prepareKeys(keys, o.prefix)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	err = c.with(func(conn Conn) error {
		var err error
		result, err = runArith(ctx, conn, mode, items, delta, c.log)
		return err
	})

	c.stats.recordArith(len(result.Outcomes))
	if err != nil {
		c.recordFatal(err)
	}
	return result, err
}

// =============================================================================
// Connection management
// =============================================================================

// FlushAll invalidates every item on every server after delay. A negative
// delay is treated as zero.
func (c *Client) FlushAll(ctx context.Context, delay time.Duration) error {
	return c.with(func(conn Conn) error {
		status, err := conn.Flush(ctx, ttlSeconds(delay))
		if status != StatusSuccess {
			c.stats.recordFatal()
			return &ProtocolError{Op: "flush_all", Status: status, Err: err}
		}
		return nil
	})
}

// DisconnectAll closes the network connections. The next call reconnects.
func (c *Client) DisconnectAll() error {
	return c.with(func(conn Conn) error {
		return conn.Quit()
	})
}

// Clone returns a new Client with the same configuration and its own
// connections. Stats start at zero.
func (c *Client) Clone() (*Client, error) {
	var clone Conn
	err := c.with(func(conn Conn) error {
		var err error
		clone, err = conn.Clone()
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewWithConn(clone, c.config)
}

// Close releases the connections. Calls made after Close fail with
// ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if closer, ok := c.conn.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return c.conn.Quit()
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns the per-server pool stats when the Conn exposes them.
func (c *Client) PoolStats() []ServerPoolStats {
	if ps, ok := c.conn.(interface{ PoolStats() []ServerPoolStats }); ok {
		return ps.PoolStats()
	}
	return nil
}
