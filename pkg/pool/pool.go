// Package pool implements the per-key connection pool spec.md §4.10
// describes: a bounded idle stack of already-connected façade clients,
// FIFO-fair leasing when a key is saturated, a maintenance sweep that
// retires long-idle connections, and a health checker (see health.go)
// that watches each key's liveness independently of leasing.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/module/nfsclient/internal/logger"
	"github.com/module/nfsclient/pkg/client"
	"github.com/module/nfsclient/pkg/metrics"
)

// DefaultMaxPoolSize bounds the number of connections (idle + leased)
// held per Key.
const DefaultMaxPoolSize = 8

// DefaultIdleTimeout is how long an idle connection survives before the
// maintenance sweep disposes of it.
const DefaultIdleTimeout = 5 * time.Minute

// DefaultSweepInterval is how often the maintenance sweep runs.
const DefaultSweepInterval = 60 * time.Second

// Key identifies one pooled connection target, per spec.md §3's pool
// key: server, export, protocol version, and the credentials/transport
// flags that change what a connection is authorized or configured to
// do.
type Key struct {
	Server     string
	Export     string
	Version    client.Version
	UserID     uint32
	GroupID    uint32
	SecurePort bool
}

// Factory constructs and fully connects (and mounts, if Export is set)
// a new Client for key. The pool never interprets protocol details
// itself — it only leases and retires whatever Factory returns.
type Factory func(ctx context.Context, key Key) (*client.Client, error)

// Options configures a Pool. Zero values take the Default* constants.
type Options struct {
	MaxPoolSize   int
	IdleTimeout   time.Duration
	SweepInterval time.Duration

	// Metrics, if non-nil, observes lease/connection lifecycle and
	// occupancy. See pkg/metrics.NewPoolMetrics.
	Metrics metrics.PoolMetrics
}

func (o Options) withDefaults() Options {
	if o.MaxPoolSize <= 0 {
		o.MaxPoolSize = DefaultMaxPoolSize
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	return o
}

type idleConn struct {
	client     *client.Client
	lastUsedAt time.Time
}

// perKey tracks one Key's idle stack, outstanding count, and any
// callers waiting for a slot to free up.
type perKey struct {
	idle       []*idleConn // LIFO: most recently released first
	outstanding int        // idle + leased, for the max_pool_size check
	waiters    []chan *Lease
}

// Pool is a per-key idle stack of pooled Clients with lease semantics.
type Pool struct {
	factory Factory
	opts    Options

	mu   sync.Mutex
	keys map[Key]*perKey

	shutdownOnce sync.Once
	stop         chan struct{}
	wg           sync.WaitGroup
	closed       bool
}

// New returns a Pool that builds connections with factory.
func New(factory Factory, opts Options) *Pool {
	p := &Pool{
		factory: factory,
		opts:    opts.withDefaults(),
		keys:    make(map[Key]*perKey),
		stop:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.runMaintenance()
	return p
}

func (p *Pool) keyState(key Key) *perKey {
	k, ok := p.keys[key]
	if !ok {
		k = &perKey{}
		p.keys[key] = k
	}
	return k
}

// Lease is a borrowed, connected Client. Callers must call Release
// exactly once when done.
type Lease struct {
	pool     *Pool
	key      Key
	client   *client.Client
	released bool
}

// Client returns the leased connection.
func (l *Lease) Client() *client.Client { return l.client }

// Release returns the connection to its key's idle stack, handing it
// directly to the oldest waiter if one is queued (FIFO), or disposing
// of it if the pool has been closed in the meantime.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.pool.release(l.key, l.client)
}

// Get returns a leased connection for key, waiting (subject to ctx) if
// the key is already at MaxPoolSize with nothing idle.
func (p *Pool) Get(ctx context.Context, key Key) (*Lease, error) {
	start := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool: closed")
	}
	ks := p.keyState(key)

	if n := len(ks.idle); n > 0 {
		c := ks.idle[n-1]
		ks.idle = ks.idle[:n-1]
		p.reportOccupancyLocked(key, ks)
		p.mu.Unlock()
		metrics.RecordLeaseAcquired(p.opts.Metrics, key.Server, time.Since(start))
		return &Lease{pool: p, key: key, client: c.client}, nil
	}

	if ks.outstanding < p.opts.MaxPoolSize {
		ks.outstanding++
		p.reportOccupancyLocked(key, ks)
		p.mu.Unlock()
		c, err := p.factory(ctx, key)
		if err != nil {
			p.mu.Lock()
			ks.outstanding--
			p.reportOccupancyLocked(key, ks)
			p.mu.Unlock()
			return nil, fmt.Errorf("pool: connect: %w", err)
		}
		metrics.RecordConnectionBuilt(p.opts.Metrics, key.Server)
		metrics.RecordLeaseAcquired(p.opts.Metrics, key.Server, time.Since(start))
		return &Lease{pool: p, key: key, client: c}, nil
	}

	wait := make(chan *Lease, 1)
	ks.waiters = append(ks.waiters, wait)
	p.mu.Unlock()

	select {
	case lease := <-wait:
		if lease == nil {
			return nil, fmt.Errorf("pool: closed while waiting")
		}
		metrics.RecordLeaseAcquired(p.opts.Metrics, key.Server, time.Since(start))
		return lease, nil
	case <-ctx.Done():
		p.mu.Lock()
		ks := p.keys[key]
		for i, w := range ks.waiters {
			if w == wait {
				ks.waiters = append(ks.waiters[:i], ks.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// reportOccupancyLocked publishes a key's current idle/outstanding
// counts. Callers must hold p.mu.
func (p *Pool) reportOccupancyLocked(key Key, ks *perKey) {
	metrics.SetOccupancy(p.opts.Metrics, key.Server, ks.outstanding, len(ks.idle))
}

func (p *Pool) release(key Key, c *client.Client) {
	metrics.RecordLeaseReleased(p.opts.Metrics, key.Server)

	p.mu.Lock()
	defer p.mu.Unlock()
	ks := p.keyState(key)
	defer p.reportOccupancyLocked(key, ks)

	if len(ks.waiters) > 0 {
		wait := ks.waiters[0]
		ks.waiters = ks.waiters[1:]
		wait <- &Lease{pool: p, key: key, client: c}
		return
	}

	if p.closed {
		ks.outstanding--
		metrics.RecordConnectionDisposed(p.opts.Metrics, key.Server, "pool_closed")
		_ = c.Disconnect(context.Background())
		return
	}

	ks.idle = append(ks.idle, &idleConn{client: c, lastUsedAt: time.Now()})
}

// Close disposes of every idle connection and prevents new leases;
// connections currently leased are disposed as they are released.
func (p *Pool) Close() error {
	var err error
	p.shutdownOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		p.closed = true
		for key, ks := range p.keys {
			for _, w := range ks.waiters {
				close(w)
			}
			ks.waiters = nil
			for _, c := range ks.idle {
				metrics.RecordConnectionDisposed(p.opts.Metrics, key.Server, "pool_closed")
				if dErr := c.client.Disconnect(context.Background()); dErr != nil {
					err = dErr
				}
			}
			ks.idle = nil
		}
		p.mu.Unlock()
	})
	p.wg.Wait()
	return err
}

func (p *Pool) runMaintenance() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Pool) sweep() {
	cutoff := time.Now().Add(-p.opts.IdleTimeout)

	p.mu.Lock()
	var toClose []*client.Client
	var servers []string
	for key, ks := range p.keys {
		kept := ks.idle[:0]
		for _, c := range ks.idle {
			if c.lastUsedAt.Before(cutoff) {
				toClose = append(toClose, c.client)
				servers = append(servers, key.Server)
				ks.outstanding--
			} else {
				kept = append(kept, c)
			}
		}
		ks.idle = kept
		p.reportOccupancyLocked(key, ks)
	}
	p.mu.Unlock()

	for i, c := range toClose {
		metrics.RecordConnectionDisposed(p.opts.Metrics, servers[i], "idle_timeout")
		if err := c.Disconnect(context.Background()); err != nil {
			logger.WarnCtx(context.Background(), "pool: dispose idle connection failed", logger.KeyError, err)
		}
	}
}

// Stats is a snapshot of pool occupancy, per spec.md §4.10's
// observability properties.
type Stats struct {
	TotalConnections     int
	AvailableConnections int
}

// Stats returns a pool-wide snapshot summed across every key.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	var s Stats
	for _, ks := range p.keys {
		s.TotalConnections += ks.outstanding
		s.AvailableConnections += len(ks.idle)
	}
	return s
}
