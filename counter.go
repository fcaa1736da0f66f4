package shardcount

import (
	"context"
	"fmt"

	"github.com/valyala/fastrand"

	gen "github.com/unkn0wn-root/shardcount/genstore"
	"github.com/unkn0wn-root/shardcount/internal/util"
)

type counter struct {
	name   string
	genKey string
	cache  *BiasedCounter
	shards *ShardSet
	gen    gen.GenStore
	log    Logger
	hooks  Hooks
}

func fastPick(n int) int { return int(fastrand.Uint32n(uint32(n))) }

func newCounter(name string, opts Options) (*counter, error) {
	if name == "" {
		return nil, fmt.Errorf("shardcount: name is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("shardcount: provider is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("shardcount: store is required")
	}

	ns := coalesce(opts.Namespace, "default")
	maxShards := coalesce(opts.MaxShards, DefaultMaxShards)
	if maxShards < 0 {
		maxShards = DefaultMaxShards
	}
	bias := coalesce(opts.Bias, DefaultBias)
	delayedProvider := opts.DelayedProvider
	if delayedProvider == nil {
		delayedProvider = opts.Provider
	}

	c := &counter{
		name:   name,
		genKey: util.GenKey(ns, name),
		cache:  NewBiasedCounter(opts.Provider, util.CountKey(ns, name), bias, coalesce(opts.CacheTTL, DefaultCacheTTL)),
		log:    coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = gen.NewLocalGenStore(0, 0)
	}

	pick := opts.Picker
	if pick == nil {
		pick = fastPick
	}

	c.shards = &ShardSet{
		name:      name,
		id:        util.ShardName(ns, name),
		numShards: clampShards(opts.NumShards, maxShards),
		maxShards: maxShards,
		store:     opts.Store,
		delayed:   NewDelayedBuffer(NewBiasedCounter(delayedProvider, util.DelayedKey(ns, name), bias, opts.DelayedTTL)),
		pick:      pick,
		log:       c.log,
		hooks:     c.hooks,
	}
	return c, nil
}

func (c *counter) Name() string   { return c.name }
func (c *counter) NumShards() int { return c.shards.numShards }

func (c *counter) Count(ctx context.Context, nocache bool) (int64, error) {
	cached, hit := c.cached(ctx)
	if hit && !nocache {
		return cached, nil
	}

	obs, gerr := c.gen.Snapshot(ctx, c.genKey)
	if gerr != nil {
		c.log.Warn("gen snapshot error", Fields{"name": c.name, "err": gerr})
		c.hooks.GenSnapshotError(c.name, gerr)
	}

	total, err := c.shards.Sum(ctx)
	if err != nil {
		if hit {
			c.log.Warn("rescan failed; serving cached count", Fields{"name": c.name, "err": err})
			return cached, nil
		}
		return 0, err
	}

	// without a trustworthy generation we can not tell whether a Delete
	// raced the rescan, so leave the cache alone
	if gerr == nil {
		c.storeIfCurrent(ctx, total, obs)
	}
	return total, nil
}

func (c *counter) cached(ctx context.Context) (int64, bool) {
	v, ok, err := c.cache.Get(ctx)
	if err != nil {
		c.log.Debug("cache get failed; treating as miss", Fields{"key": c.cache.Key(), "err": err})
		c.hooks.CacheError(c.cache.Key(), "get", err)
		return 0, false
	}
	return v, ok
}

// storeIfCurrent writes total to the cache iff the generation is still obs.
func (c *counter) storeIfCurrent(ctx context.Context, total int64, obs uint64) {
	cur, err := c.gen.Snapshot(ctx, c.genKey)
	if err != nil {
		c.hooks.GenSnapshotError(c.name, err)
		return
	}
	if cur != obs {
		c.log.Debug("cache fill skipped (gen moved)", Fields{"name": c.name, "obs": obs, "cur": cur})
		return
	}
	c.setCache(ctx, total)
}

func (c *counter) setCache(ctx context.Context, v int64) {
	ok, err := c.cache.Set(ctx, v)
	if err != nil {
		c.log.Debug("cache set failed", Fields{"key": c.cache.Key(), "err": err})
		c.hooks.CacheError(c.cache.Key(), "set", err)
		return
	}
	if !ok {
		c.log.Debug("cache set rejected by provider (pressure)", Fields{"key": c.cache.Key()})
		c.hooks.ProviderSetRejected(c.cache.Key())
	}
}

func (c *counter) SetCount(ctx context.Context, value int64) (bool, error) {
	current, err := c.Count(ctx, false)
	if err != nil {
		return false, err
	}
	delta := value - current
	if delta == 0 {
		c.setCache(ctx, value)
		return true, nil
	}
	committed, err := c.shards.Apply(ctx, delta)
	if err != nil {
		// the delta landed nowhere; the cache must keep the old total
		return false, err
	}
	c.setCache(ctx, value)
	return committed, nil
}

func (c *counter) Increment(ctx context.Context, delta int64) (bool, error) {
	committed, err := c.shards.Apply(ctx, delta)
	// The cache follows every accepted delta, committed or deferred. An
	// error means the delta was recorded nowhere. An absent entry stays
	// absent; the next read rescans.
	if delta != 0 && err == nil {
		if _, aerr := c.cache.Adjust(ctx, delta); aerr != nil {
			c.log.Debug("cache adjust failed", Fields{"key": c.cache.Key(), "delta": delta, "err": aerr})
			c.hooks.CacheError(c.cache.Key(), "adjust", aerr)
		}
	}
	return committed, err
}

func (c *counter) Decrement(ctx context.Context) (bool, error) {
	return c.Increment(ctx, -1)
}

func (c *counter) Delete(ctx context.Context) error {
	de := &DeleteError{Name: c.name}
	de.PurgeErr = c.shards.Purge(ctx)
	de.BufferErr = c.shards.delayed.Clear(ctx)

	if _, err := c.gen.Bump(ctx, c.genKey); err != nil {
		c.log.Error("gen bump error", Fields{"name": c.name, "err": err})
		c.hooks.GenBumpError(c.name, err)
	}
	de.CacheErr = c.cache.Delete(ctx)

	if de.empty() {
		c.log.Debug("counter deleted", Fields{"name": c.name})
		return nil
	}
	c.log.Error("counter delete incomplete", Fields{"name": c.name, "err": de})
	c.hooks.DeleteOutage(c.name, de)
	return de
}
