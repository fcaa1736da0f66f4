package shardcount

import "time"

const (
	DefaultNumShards = 5
	DefaultMaxShards = 50
	DefaultCacheTTL  = 30 * time.Second

	// DefaultBias keeps every value in [-2^62, 2^62) non-negative once biased,
	// and below 2^63 so signed 64-bit backends (Redis INCRBY) accept it.
	DefaultBias uint64 = 1 << 62
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// clampShards resolves the effective shard count: non-positive => default,
// above max => max.
func clampShards(n, max int) int {
	if n <= 0 {
		n = DefaultNumShards
	}
	if n > max {
		return max
	}
	return n
}
