// Package genstore keeps a generation number per counter. Deleting a counter
// bumps its generation; a rescan only writes its result to the cache when the
// generation it observed before reading the shards is still current, so a
// slow rescan can not resurrect a deleted counter in the cache.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore for a single process, RedisGenStore when several
// processes share the same counters.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes generations not bumped within retention (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
