package shardcount

import (
	"context"
	"time"

	gen "github.com/unkn0wn-root/shardcount/genstore"
	pr "github.com/unkn0wn-root/shardcount/provider"
	"github.com/unkn0wn-root/shardcount/store"
)

// Counter is a named, sharded counter. Safe for concurrent use; any number of
// Counter values (in any number of processes) may share a name as long as they
// share the Store and providers.
type Counter interface {
	Name() string
	// NumShards is the effective shard count after clamping.
	NumShards() int

	// Count returns the cached total, or rescans all shards when the cache
	// misses or nocache is set. The rescan result is written back to the cache.
	Count(ctx context.Context, nocache bool) (int64, error)

	// SetCount moves the counter to value by applying the difference from the
	// current (possibly cached) count to one shard.
	SetCount(ctx context.Context, value int64) (committed bool, err error)

	// Increment adds delta (may be negative). committed=false with a nil error
	// means the delta was deferred, not lost.
	Increment(ctx context.Context, delta int64) (committed bool, err error)
	Decrement(ctx context.Context) (committed bool, err error)

	// Delete removes every shard, the delayed buffer and the cached total.
	Delete(ctx context.Context) error
}

// Options tune the behavior of a counter.
// Only Provider and Store are required; others have sensible defaults.
type Options struct {
	// Required
	Provider pr.Provider // cached totals; also the delayed buffer unless DelayedProvider is set
	Store    store.Store

	Namespace       string        // cache key namespace; "" => "default"
	DelayedProvider pr.Provider   // nil => Provider. Should not evict (e.g. Redis without maxmemory eviction)
	NumShards       int           // 0 => 5; clamped to MaxShards
	MaxShards       int           // 0 => 50; bounds rescans and purges
	CacheTTL        time.Duration // 0 => 30s
	DelayedTTL      time.Duration // 0 => never expires
	Bias            uint64        // 0 => DefaultBias
	Picker          ShardPicker   // nil => fastrand
	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	Logger          Logger        // nil => NopLogger
	Hooks           Hooks         // nil => NopHooks
}

func New(name string, opts Options) (Counter, error) {
	return newCounter(name, opts)
}
