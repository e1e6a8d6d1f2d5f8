package geocode

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/geofind"
)

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
	Available() bool
}

// ErrClientClosed is returned by Geocode after Close.
var ErrClientClosed = eris.New("geocode: client closed")

// AddrMapClient geocodes against one address-map file. It keeps a bounded
// pool of engines, each with its own index handle, so concurrent callers
// never share a handle. Engines are opened on first use.
type AddrMapClient struct {
	name             string
	path             string
	geohashPrecision int

	engines    chan *geofind.Engine
	openEngine func(path string) (*geofind.Engine, error)

	mu     sync.Mutex
	opened int
	closed bool
	// freed is closed and replaced whenever opened drops, waking callers
	// blocked in acquire so they can open an engine themselves.
	freed chan struct{}
}

// Option configures an AddrMapClient.
type Option func(*AddrMapClient)

// WithName sets the provider name reported in Result.Source.
func WithName(name string) Option {
	return func(c *AddrMapClient) {
		c.name = name
	}
}

// WithPoolSize sets the maximum number of open index handles.
func WithPoolSize(n int) Option {
	return func(c *AddrMapClient) {
		if n > 0 {
			c.engines = make(chan *geofind.Engine, n)
		}
	}
}

// WithGeohashPrecision sets the geohash length attached to matched results.
// Zero disables geohashes.
func WithGeohashPrecision(p int) Option {
	return func(c *AddrMapClient) {
		c.geohashPrecision = p
	}
}

// NewAddrMapClient creates a client for the address map at path. No file is
// opened until the first query.
func NewAddrMapClient(path string, opts ...Option) *AddrMapClient {
	c := &AddrMapClient{
		name:             "addrmap",
		path:             path,
		geohashPrecision: 9,
		engines:          make(chan *geofind.Engine, 8),
		openEngine:       geofind.Open,
		freed:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Provider.
func (c *AddrMapClient) Name() string { return c.name }

// Path returns the address map path.
func (c *AddrMapClient) Path() string { return c.path }

// PoolSize returns the maximum number of open index handles.
func (c *AddrMapClient) PoolSize() int { return cap(c.engines) }

// Available implements Provider.
func (c *AddrMapClient) Available() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	_, err := os.Stat(c.path)
	return err == nil
}

// Geocode implements Provider.
func (c *AddrMapClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	oneLine := formatOneLine(addr)
	if oneLine == "" {
		return &Result{ID: addr.ID, Matched: false, Source: c.name}, nil
	}

	loc, ok, err := c.Find(ctx, oneLine)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{ID: addr.ID, Input: oneLine, Matched: false, Source: c.name}, nil
	}
	r := newResult(c.name, oneLine, loc, c.geohashPrecision)
	r.ID = addr.ID
	return r, nil
}

// BatchGeocode implements Client with one worker per pooled engine.
func (c *AddrMapClient) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	return NewCascadeClient([]Provider{c}, WithBatchConcurrency(c.PoolSize())).BatchGeocode(ctx, addrs)
}

// Find runs one raw query on a pooled engine.
func (c *AddrMapClient) Find(ctx context.Context, line string) (geofind.Location, bool, error) {
	e, err := c.acquire(ctx)
	if err != nil {
		return geofind.Location{}, false, err
	}
	defer c.release(e)

	loc, ok, err := e.Find(line)
	if err != nil {
		return geofind.Location{}, false, eris.Wrapf(err, "geocode: find %q", line)
	}
	return loc, ok, nil
}

// Ping opens the address map if no engine is open yet, so open failures
// surface before the first query.
func (c *AddrMapClient) Ping(ctx context.Context) error {
	e, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	c.release(e)
	return nil
}

// Close closes every idle engine. Engines still checked out are closed as
// they are released.
func (c *AddrMapClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for {
		select {
		case e := <-c.engines:
			errs = append(errs, c.retire(e))
		default:
			return errors.Join(errs...)
		}
	}
}

func (c *AddrMapClient) acquire(ctx context.Context) (*geofind.Engine, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		select {
		case e := <-c.engines:
			return e, nil
		default:
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClientClosed
		}
		if c.opened < cap(c.engines) {
			c.opened++
			n := c.opened
			c.mu.Unlock()
			return c.open(n)
		}
		freed := c.freed
		c.mu.Unlock()

		select {
		case e := <-c.engines:
			return e, nil
		case <-freed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// open opens the n-th engine. The caller has already counted it in opened.
func (c *AddrMapClient) open(n int) (*geofind.Engine, error) {
	e, err := c.openEngine(c.path)
	if err != nil {
		c.mu.Lock()
		c.dropLocked()
		c.mu.Unlock()
		return nil, eris.Wrapf(err, "geocode: open %s", c.path)
	}
	zap.L().Debug("geocode: opened engine",
		zap.String("path", c.path),
		zap.Int("opened", n),
	)
	return e, nil
}

// dropLocked releases one open slot and wakes every waiter. c.mu must be held.
func (c *AddrMapClient) dropLocked() {
	c.opened--
	close(c.freed)
	c.freed = make(chan struct{})
}

func (c *AddrMapClient) release(e *geofind.Engine) {
	c.mu.Lock()
	if !c.closed {
		// Never blocks: at most cap(c.engines) engines exist.
		c.engines <- e
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if err := c.retire(e); err != nil {
		zap.L().Warn("geocode: close engine", zap.Error(err))
	}
}

func (c *AddrMapClient) retire(e *geofind.Engine) error {
	c.mu.Lock()
	c.dropLocked()
	c.mu.Unlock()
	return e.Close()
}
