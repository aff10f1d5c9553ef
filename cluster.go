package mcclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edwingeng/deque/v2"
	"github.com/pior/mcclient/meta"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ClusterConn is the default Conn. It routes each key to a server, keeps a
// connection pool and an optional circuit breaker per server, and pipelines
// multi-gets with the meta protocol.
type ClusterConn struct {
	servers      Servers
	selectServer SelectServerFunc
	config       Config
	log          zerolog.Logger

	mu    sync.RWMutex
	pools map[string]*serverPool

	stopHealthCheck chan struct{}
	closeOnce       sync.Once

	// multi-get in progress
	pending *deque.Deque[*mgetBatch]
	current *mgetBatch
	skipped []string
}

type serverPool struct {
	addr    string
	pool    Pool
	breaker CircuitBreaker // nil if not configured
}

// mgetBatch is one server's share of a multi-get. One chunk of it is on the
// wire; keys holds the ones not sent yet.
type mgetBatch struct {
	addr string
	res  Resource
	keys []string
}

// mgetChunkSize bounds the requests written before their responses are read.
// memcached answers in order and stops reading once its output backs up, so
// an unbounded pipeline deadlocks on large key sets.
const mgetChunkSize = 64

var _ Conn = (*ClusterConn)(nil)

// NewClusterConn creates a ClusterConn. Connections are opened lazily.
func NewClusterConn(servers Servers, config Config) (*ClusterConn, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	config = config.withDefaults()

	c := &ClusterConn{
		servers:         servers,
		selectServer:    config.SelectServer,
		config:          config,
		log:             config.Logger.With().Str("layer", "cluster").Logger(),
		pools:           make(map[string]*serverPool),
		stopHealthCheck: make(chan struct{}),
		pending:         deque.NewDeque[*mgetBatch](),
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	return c, nil
}

// Clone returns a new ClusterConn with the same servers and configuration and
// its own pools.
func (c *ClusterConn) Clone() (Conn, error) {
	return NewClusterConn(c.servers, c.config)
}

// Quit closes every pool. New pools are created on the next call.
func (c *ClusterConn) Quit() error {
	c.abortMGet()

	c.mu.Lock()
	pools := c.pools
	c.pools = make(map[string]*serverPool)
	c.mu.Unlock()

	for _, sp := range pools {
		sp.pool.Close()
	}
	return nil
}

// Close stops the health checks and closes every pool.
func (c *ClusterConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopHealthCheck)
	})
	return c.Quit()
}

// PoolStats returns the stats of every server pool, sorted by address.
func (c *ClusterConn) PoolStats() []ServerPoolStats {
	c.mu.RLock()
	stats := make([]ServerPoolStats, 0, len(c.pools))
	for _, sp := range c.pools {
		s := ServerPoolStats{Addr: sp.addr, PoolStats: sp.pool.Stats()}
		if sp.breaker != nil {
			s.BreakerState = sp.breaker.State().String()
		}
		stats = append(stats, s)
	}
	c.mu.RUnlock()

	slices.SortFunc(stats, func(a, b ServerPoolStats) int { return strings.Compare(a.Addr, b.Addr) })
	return stats
}

// =============================================================================
// Primitives
// =============================================================================

func (c *ClusterConn) Store(ctx context.Context, mode StoreMode, key string, payload []byte, flags uint32, ttl uint32) (Status, error) {
	if meta.ValidateKey(key, false) != nil {
		return StatusBadKeyProvided, nil
	}

	reqFlags := []meta.Flag{meta.FormatFlagUint(meta.FlagClientFlags, uint64(flags))}
	if ttl > 0 {
		reqFlags = append(reqFlags, meta.FormatFlagUint(meta.FlagTTL, uint64(ttl)))
	}
	if token := storeModeToken(mode); token != "" {
		reqFlags = append(reqFlags, meta.Flag{Type: meta.FlagMode, Token: token})
	}

	resp, err := c.exec(ctx, key, meta.NewRequest(meta.CmdSet, key, payload, reqFlags))
	status, err := responseStatus(resp, err)
	if status == StatusNotFound {
		// append/prepend on a missing item
		status = StatusNotStored
	}
	return status, err
}

func (c *ClusterConn) Arith(ctx context.Context, mode ArithMode, key string, delta uint64) (uint64, Status, error) {
	if meta.ValidateKey(key, false) != nil {
		return 0, StatusBadKeyProvided, nil
	}

	token := meta.ModeIncrement
	if mode == ModeDecrement {
		token = meta.ModeDecrement
	}
	reqFlags := []meta.Flag{
		{Type: meta.FlagReturnValue},
		meta.FormatFlagUint(meta.FlagDelta, delta),
		{Type: meta.FlagMode, Token: token},
	}

	resp, err := c.exec(ctx, key, meta.NewRequest(meta.CmdArithmetic, key, nil, reqFlags))
	status, err := responseStatus(resp, err)
	if status != StatusSuccess {
		return 0, status, err
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(resp.Data)), 10, 64)
	if err != nil {
		return 0, StatusProtocolError, fmt.Errorf("parsing counter value: %w", err)
	}
	return value, StatusSuccess, nil
}

// Delete removes key. With a ttl the item is invalidated instead: memcached
// keeps it, flagged stale, until the ttl expires, and multi-gets skip it.
func (c *ClusterConn) Delete(ctx context.Context, key string, ttl uint32) (Status, error) {
	if meta.ValidateKey(key, false) != nil {
		return StatusBadKeyProvided, nil
	}

	var reqFlags []meta.Flag
	if ttl > 0 {
		reqFlags = []meta.Flag{{Type: meta.FlagInvalidate}, meta.FormatFlagUint(meta.FlagTTL, uint64(ttl))}
	}

	resp, err := c.exec(ctx, key, meta.NewRequest(meta.CmdDelete, key, nil, reqFlags))
	return responseStatus(resp, err)
}

// Flush sends flush_all to every server. It stops at the first server that
// does not answer OK.
func (c *ClusterConn) Flush(ctx context.Context, delay uint32) (Status, error) {
	servers := c.servers.List()
	if len(servers) == 0 {
		return StatusConnectionFailure, ErrNoServers
	}

	for _, addr := range servers {
		sp, err := c.getOrCreatePool(addr)
		if err != nil {
			return StatusConnectionFailure, err
		}

		resp, err := c.execOn(ctx, sp, meta.NewFlushAllRequest(int(delay)))
		status, err := responseStatus(resp, err)
		if status != StatusSuccess {
			if err == nil {
				err = fmt.Errorf("flush_all on %s: %s", addr, status)
			}
			return status, err
		}
	}
	return StatusSuccess, nil
}

func storeModeToken(mode StoreMode) string {
	switch mode {
	case ModeAdd:
		return meta.ModeAdd
	case ModeReplace:
		return meta.ModeReplace
	case ModeAppend:
		return meta.ModeAppend
	case ModePrepend:
		return meta.ModePrepend
	default:
		return ""
	}
}

// =============================================================================
// Multi-get
// =============================================================================

// MGetStart groups keys by server and writes, on one connection per server,
// the first chunk of quiet mg requests followed by mn. MGetNext sends the
// following chunks as the previous ones are read. Keys the protocol cannot
// carry are not sent; MGetNext reports them first as StatusBadKeyProvided.
func (c *ClusterConn) MGetStart(ctx context.Context, keys []string) (Status, error) {
	c.abortMGet()

	servers := c.servers.List()
	byServer := make(map[string][]string)
	var order []string

	for _, key := range keys {
		if meta.ValidateKey(key, false) != nil {
			c.skipped = append(c.skipped, key)
			continue
		}
		addr, err := c.selectServer(key, servers)
		if err != nil {
			c.abortMGet()
			return StatusConnectionFailure, err
		}
		if _, ok := byServer[addr]; !ok {
			order = append(order, addr)
		}
		byServer[addr] = append(byServer[addr], key)
	}

	for _, addr := range order {
		sp, err := c.getOrCreatePool(addr)
		if err == nil {
			err = c.startBatch(ctx, sp, byServer[addr])
		}
		if err != nil {
			c.abortMGet()
			status, err := responseStatus(nil, err)
			return status, err
		}
	}

	return StatusSuccess, nil
}

func (c *ClusterConn) startBatch(ctx context.Context, sp *serverPool, keys []string) error {
	write := func() (*meta.Response, error) {
		res, err := sp.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		batch := &mgetBatch{addr: sp.addr, res: res, keys: keys}
		if err := c.writeChunk(ctx, batch); err != nil {
			c.destroy(res, sp.addr, err)
			return nil, err
		}

		c.pending.PushFront(batch)
		return nil, nil
	}

	if sp.breaker != nil {
		_, err := sp.breaker.Execute(write)
		return err
	}
	_, err := write()
	return err
}

// writeChunk sends the next mgetChunkSize keys of batch as quiet mg requests
// followed by mn.
func (c *ClusterConn) writeChunk(ctx context.Context, batch *mgetBatch) error {
	conn := batch.res.Value()
	c.setDeadline(ctx, conn)

	n := min(len(batch.keys), mgetChunkSize)
	for _, key := range batch.keys[:n] {
		flags := []meta.Flag{
			{Type: meta.FlagReturnValue},
			{Type: meta.FlagReturnClientFlags},
			{Type: meta.FlagReturnKey},
			{Type: meta.FlagQuiet},
		}
		if err := conn.Write(meta.NewRequest(meta.CmdGet, key, nil, flags)); err != nil {
			return err
		}
	}
	batch.keys = batch.keys[n:]

	if err := conn.Write(meta.NewRequest(meta.CmdNoOp, "", nil, nil)); err != nil {
		return err
	}
	return conn.Flush()
}

// MGetNext returns the next hit of the multi-get started by MGetStart, then
// StatusEnd once every server answered its mn.
func (c *ClusterConn) MGetNext(ctx context.Context) (Fetched, Status, error) {
	if len(c.skipped) > 0 {
		key := c.skipped[0]
		c.skipped = c.skipped[1:]
		return Fetched{Key: key}, StatusBadKeyProvided, nil
	}

	for {
		if c.current == nil {
			if c.pending.Len() == 0 {
				return Fetched{}, StatusEnd, nil
			}
			c.current = c.pending.PopBack()
		}

		if err := ctx.Err(); err != nil {
			c.abortMGet()
			return Fetched{}, StatusTimeout, err
		}

		resp, err := c.current.res.Value().Read()
		if err != nil {
			c.abortMGet()
			status, err := responseStatus(nil, err)
			return Fetched{}, status, err
		}
		if resp.HasError() {
			c.abortMGet()
			status, _ := responseStatus(resp, nil)
			return Fetched{}, status, resp.Error
		}

		switch resp.Status {
		case meta.StatusMN:
			if len(c.current.keys) > 0 {
				if err := c.writeChunk(ctx, c.current); err != nil {
					c.abortMGet()
					status, err := responseStatus(nil, err)
					return Fetched{}, status, err
				}
				continue
			}
			c.current.res.Release()
			c.current = nil

		case meta.StatusVA:
			if resp.IsStale() {
				// invalidated by a delete with a TTL
				continue
			}
			key, ok := resp.Key()
			if !ok {
				c.abortMGet()
				return Fetched{}, StatusProtocolError, errors.New("mcclient: multi-get hit without key")
			}
			flags, _ := resp.ClientFlags()
			return Fetched{Key: key, Payload: resp.Data, Flags: flags}, StatusSuccess, nil

		case meta.StatusEN:
			// quiet mode hides misses; tolerate servers that send them anyway

		default:
			c.abortMGet()
			return Fetched{}, StatusProtocolError, fmt.Errorf("mcclient: unexpected multi-get status %q", resp.Status)
		}
	}
}

// abortMGet drops a multi-get in progress. Connections with unread responses
// are destroyed.
func (c *ClusterConn) abortMGet() {
	c.skipped = nil

	if c.current != nil {
		c.destroy(c.current.res, c.current.addr, nil)
		c.current = nil
	}
	for c.pending.Len() > 0 {
		batch := c.pending.PopBack()
		c.destroy(batch.res, batch.addr, nil)
	}
}

// =============================================================================
// Request execution
// =============================================================================

func (c *ClusterConn) exec(ctx context.Context, key string, req *meta.Request) (*meta.Response, error) {
	addr, err := c.selectServer(key, c.servers.List())
	if err != nil {
		return nil, err
	}
	sp, err := c.getOrCreatePool(addr)
	if err != nil {
		return nil, err
	}
	return c.execOn(ctx, sp, req)
}

func (c *ClusterConn) execOn(ctx context.Context, sp *serverPool, req *meta.Request) (*meta.Response, error) {
	if sp.breaker != nil {
		return sp.breaker.Execute(func() (*meta.Response, error) {
			return c.execDirect(ctx, sp, req)
		})
	}
	return c.execDirect(ctx, sp, req)
}

func (c *ClusterConn) execDirect(ctx context.Context, sp *serverPool, req *meta.Request) (*meta.Response, error) {
	res, err := sp.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	conn := res.Value()
	c.setDeadline(ctx, conn)

	resp, err := conn.Send(req)
	if err != nil {
		if meta.ShouldCloseConnection(err) {
			c.destroy(res, sp.addr, err)
		} else {
			res.Release()
		}
		return nil, err
	}

	if resp.HasError() && meta.ShouldCloseConnection(resp.Error) {
		c.destroy(res, sp.addr, resp.Error)
		return resp, nil
	}

	res.Release()
	return resp, nil
}

func (c *ClusterConn) setDeadline(ctx context.Context, conn *Connection) {
	deadline, ok := ctx.Deadline()
	if !ok && c.config.Timeout > 0 {
		deadline = time.Now().Add(c.config.Timeout)
	}
	_ = conn.SetDeadline(deadline)
}

func (c *ClusterConn) destroy(res Resource, addr string, cause error) {
	if cause != nil {
		c.log.Warn().Err(cause).Str("server", addr).Msg("closing connection")
	}
	res.Destroy()
}

func (c *ClusterConn) getOrCreatePool(addr string) (*serverPool, error) {
	c.mu.RLock()
	sp, ok := c.pools[addr]
	c.mu.RUnlock()
	if ok {
		return sp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sp, ok := c.pools[addr]; ok {
		return sp, nil
	}

	dial := c.config.dial
	if dial == nil {
		dialer := c.config.Dialer
		dial = func(ctx context.Context, addr string) (*Connection, error) {
			netConn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			return NewConnection(netConn), nil
		}
	}

	pool, err := c.config.Pool(func(ctx context.Context) (*Connection, error) {
		return dial(ctx, addr)
	}, c.config.MaxSize)
	if err != nil {
		return nil, err
	}

	sp = &serverPool{addr: addr, pool: pool}
	if c.config.NewCircuitBreaker != nil {
		sp.breaker = c.config.NewCircuitBreaker(addr)
	}
	c.pools[addr] = sp
	return sp, nil
}

// =============================================================================
// Health checks
// =============================================================================

func (c *ClusterConn) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

func (c *ClusterConn) checkAllPools() {
	c.mu.RLock()
	pools := make([]*serverPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	c.mu.RUnlock()

	for _, sp := range pools {
		c.checkPoolConnections(sp)
	}
}

// checkPoolConnections destroys idle connections past their lifetime or idle
// limit, or failing a noop round trip.
func (c *ClusterConn) checkPoolConnections(sp *serverPool) {
	now := time.Now()

	for _, res := range sp.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			c.destroy(res, sp.addr, err)
			continue
		}

		res.ReleaseUnused()
	}
}

func (c *ClusterConn) healthCheck(conn *Connection) error {
	_ = conn.SetDeadline(time.Now().Add(c.config.HealthCheckInterval))

	resp, err := conn.Send(meta.NewRequest(meta.CmdNoOp, "", nil, nil))
	if err != nil {
		return err
	}
	if resp.Status != meta.StatusMN {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}
	return nil
}

// =============================================================================
// Status mapping
// =============================================================================

// responseStatus maps a response, or the error that replaced it, to a Status.
// The error is kept only for fatal statuses.
func responseStatus(resp *meta.Response, err error) (Status, error) {
	status := statusOf(resp, err)
	if Classify(status) != ClassFatal {
		return status, nil
	}
	if err == nil && resp != nil {
		err = resp.Error
		if err == nil {
			err = fmt.Errorf("mcclient: unexpected status %q", resp.Status)
		}
	}
	return status, err
}

func statusOf(resp *meta.Response, err error) Status {
	if err != nil {
		var (
			keyErr   *meta.InvalidKeyError
			parseErr *meta.ParseError
			netErr   net.Error
		)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return StatusBreakerOpen
		case errors.As(err, &keyErr):
			return StatusBadKeyProvided
		case errors.As(err, &parseErr):
			return StatusProtocolError
		case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
			return StatusTimeout
		default:
			return StatusConnectionFailure
		}
	}

	if resp == nil {
		return StatusUnknown
	}

	if resp.Error != nil {
		var serverErr *meta.ServerError
		var clientErr *meta.ClientError
		switch {
		case errors.As(resp.Error, &serverErr):
			if strings.Contains(serverErr.Message, "out of memory") {
				return StatusServerOutOfMemory
			}
			return StatusServerError
		case errors.As(resp.Error, &clientErr):
			return StatusClientError
		default:
			return StatusProtocolError
		}
	}

	switch resp.Status {
	case meta.StatusHD, meta.StatusVA, meta.StatusOK, meta.StatusMN:
		return StatusSuccess
	case meta.StatusNS:
		return StatusNotStored
	case meta.StatusEX:
		return StatusDataExists
	case meta.StatusNF, meta.StatusEN:
		return StatusNotFound
	default:
		return StatusUnknown
	}
}
