// Package provider defines the atomic counter cache used by shardcount.
//
// A provider stores unsigned 64-bit cells with optional TTLs and offers atomic
// increment/decrement on existing cells. Signed values are layered on top by
// shardcount.BiasedCounter; providers never see negative numbers.
//
// Important: the keyspaces "count:<ns>:" and "delayed:<ns>:" are owned by
// shardcount. External code MUST NOT write under these prefixes.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrRejected is returned by Incr/Decr when the store accepted the read but
// refused to write the new value back (admission/eviction pressure). The cell
// is left unchanged.
var ErrRejected = errors.New("provider: write rejected")

// Provider is a minimal atomic counter cache with TTLs.
// Must be safe for concurrent use. A ttl <= 0 means "no expiry".
type Provider interface {
	// Get returns (value, true, nil) on hit; (0, false, nil) on miss.
	// If an IO/remote error happens, return (0, false, err).
	Get(ctx context.Context, key string) (uint64, bool, error)

	// Set stores value with the given TTL, replacing any existing cell.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value uint64, ttl time.Duration) (ok bool, err error)

	// Add stores value only if key is absent. added=false means the key existed
	// (or the write was rejected).
	Add(ctx context.Context, key string, value uint64, ttl time.Duration) (added bool, err error)

	// Incr atomically adds delta to an existing cell and returns the new value.
	// ok=false on miss; a missing cell is never created. TTL is preserved.
	Incr(ctx context.Context, key string, delta uint64) (uint64, bool, error)

	// Decr atomically subtracts delta, clamping at zero. Same miss and TTL
	// semantics as Incr.
	Decr(ctx context.Context, key string, delta uint64) (uint64, bool, error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// SubClamp returns v-delta, or 0 when delta > v.
func SubClamp(v, delta uint64) uint64 {
	if delta > v {
		return 0
	}
	return v - delta
}
