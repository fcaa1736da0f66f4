package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/shardcount/internal/stripe"
	"github.com/unkn0wn-root/shardcount/internal/wire"
	pr "github.com/unkn0wn-root/shardcount/provider"
)

// Provider stores counter cells in BigCache. BigCache only knows a global
// LifeWindow, so every cell carries its own deadline in the wire frame and
// expired or corrupt cells are deleted on read. LifeWindow should be at least
// as long as the longest TTL in use.
type Provider struct {
	c     *bc.BigCache
	locks *stripe.Locks
	now   func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Stripes            int // 0 => 256
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	conf.MaxEntrySize = wire.CellSize
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, locks: stripe.New(cfg.Stripes), now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) (uint64, bool, error) {
	v, _, ok, err := p.load(key)
	return v, ok, err
}

// load returns the live cell for key, deleting it when expired or corrupt.
func (p *Provider) load(key string) (value uint64, expiresAt int64, ok bool, err error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	value, expiresAt, err = wire.DecodeCell(b)
	if err != nil {
		_ = p.c.Delete(key) // self-heal corrupt
		return 0, 0, false, nil
	}
	if wire.Expired(expiresAt, p.now().UnixNano()) {
		_ = p.c.Delete(key)
		return 0, 0, false, nil
	}
	return value, expiresAt, true, nil
}

func (p *Provider) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return p.now().Add(ttl).UnixNano()
}

func (p *Provider) Set(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	if err := p.c.Set(key, wire.EncodeCell(value, p.deadline(ttl))); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Add(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	_, _, ok, err := p.load(key)
	if err != nil || ok {
		return false, err
	}
	if err := p.c.Set(key, wire.EncodeCell(value, p.deadline(ttl))); err != nil {
		return false, err
	}
	return true, nil
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

	cur, exp, ok, err := p.load(key)
	if err != nil || !ok {
		return 0, false, err
	}
	next := fn(cur)
	if err := p.c.Set(key, wire.EncodeCell(next, exp)); err != nil {
		return 0, false, err
	}
	return next, true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
