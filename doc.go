// Package shardcount implements a sharded, cache-fronted distributed counter.
// Writes go to one of N shard records chosen at random, so concurrent
// increments rarely contend on the same record. Reads come from an atomic
// cache and fall back to a rescan of all shards.
//
// Components:
//   - Provider: atomic counter cache with TTL (Redis, Ristretto, BigCache).
//   - Store: key-addressed records with single-key transactions (in-memory, Redis).
//   - BiasedCounter: signed value in an unsigned cache cell (stored as bias+v).
//   - DelayedBuffer: deltas whose shard write failed, folded into the next success.
//   - GenStore: per-counter generation; a rescan never repopulates the cache
//     after a concurrent Delete.
//
// Keys:
//
//	shard:{<ns>:<name>}:<index> - shard records in the Store
//	count:<ns>:<name>           - cached total
//	delayed:<ns>:<name>         - delayed delta
//
// Invariant:
//
//	true count = Σ shard.Count + delayed delta
//
// Usage:
//
//	hits, _ := shardcount.New("hits", shardcount.Options{
//	    Namespace: "app",
//	    Provider:  cache,
//	    Store:     shards,
//	})
//	_, _ = hits.Increment(ctx, 1)
//	n, _ := hits.Count(ctx, false)
package shardcount
