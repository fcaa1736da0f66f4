package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/shardcount/internal/stripe"
	pr "github.com/unkn0wn-root/shardcount/provider"
)

// Provider keeps counter cells in a Ristretto cache. Ristretto has no atomic
// read-modify-write, so Incr/Decr/Add are serialized per key by a striped
// lock table. Every write waits for the set buffer to drain so the next Get
// observes it.
//
// Ristretto may evict or refuse any cell. Do not use it as the delayed-delta
// provider unless losing buffered deltas is acceptable.
type Provider struct {
	c     *rc.Cache
	locks *stripe.Locks
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	Stripes     int // 0 => 256
	// Each cell costs 1; MaxCost is therefore the maximum number of cells.
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, locks: stripe.New(cfg.Stripes)}, nil
}

func (p *Provider) Get(_ context.Context, key string) (uint64, bool, error) {
	return p.get(key)
}

func (p *Provider) get(key string) (uint64, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return 0, false, nil
	}
	u, isU := v.(uint64)
	if !isU {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return 0, false, nil
	}
	return u, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	return p.set(key, value, ttl), nil
}

func (p *Provider) set(key string, value uint64, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, 1, ttl)
	p.c.Wait()
	return ok
}

func (p *Provider) Add(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	if _, ok, _ := p.get(key); ok {
		return false, nil
	}
	return p.set(key, value, ttl), nil
}

func (p *Provider) Incr(_ context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.update(key, func(v uint64) uint64 { return v + delta })
}

func (p *Provider) Decr(_ context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.update(key, func(v uint64) uint64 { return pr.SubClamp(v, delta) })
}

func (p *Provider) update(key string, fn func(uint64) uint64) (uint64, bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()

	cur, ok, _ := p.get(key)
	if !ok {
		return 0, false, nil
	}
	// keep the remaining lifetime; 0 means the cell never expires
	ttl, alive := p.c.GetTTL(key)
	if !alive {
		return 0, false, nil
	}
	next := fn(cur)
	if !p.set(key, next, ttl) {
		return 0, false, pr.ErrRejected
	}
	return next, true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	mu := p.locks.For(key)
	mu.Lock()
	p.c.Del(key)
	mu.Unlock()
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics returns ristretto's counters; nil unless Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
