package shardcount

import (
	"context"
	"time"

	pr "github.com/unkn0wn-root/shardcount/provider"
)

// BiasedCounter stores a signed value in an unsigned provider cell as
// bias+v. Arithmetic wraps modulo 2^64, so any v in [-bias, 2^64-bias)
// round-trips; providers that keep cells as signed 64-bit integers narrow
// the upper bound to 2^63-bias.
//
// Operations are best-effort: there is no transaction between observing a
// cell and changing it. Drift is bounded by the cell's TTL.
type BiasedCounter struct {
	p    pr.Provider
	key  string
	bias uint64
	ttl  time.Duration
}

func NewBiasedCounter(p pr.Provider, key string, bias uint64, ttl time.Duration) *BiasedCounter {
	return &BiasedCounter{p: p, key: key, bias: bias, ttl: ttl}
}

func (b *BiasedCounter) Key() string { return b.key }

func (b *BiasedCounter) encode(v int64) uint64 { return b.bias + uint64(v) }
func (b *BiasedCounter) decode(u uint64) int64 { return int64(u - b.bias) }

// Get returns ok=false when the cell is absent. Absent is "unknown", not zero.
func (b *BiasedCounter) Get(ctx context.Context) (int64, bool, error) {
	u, ok, err := b.p.Get(ctx, b.key)
	if err != nil || !ok {
		return 0, false, err
	}
	return b.decode(u), true, nil
}

// Set replaces the cell. ok=false means the provider refused the write.
func (b *BiasedCounter) Set(ctx context.Context, v int64) (bool, error) {
	return b.p.Set(ctx, b.key, b.encode(v), b.ttl)
}

// Increment adds delta. An absent cell is created with value delta; when two
// callers race to create it the loser applies its delta to the winner's cell.
func (b *BiasedCounter) Increment(ctx context.Context, delta int64) error {
	if delta == 0 {
		return nil
	}
	applied, err := b.Adjust(ctx, delta)
	if err != nil || applied {
		return err
	}
	added, err := b.p.Add(ctx, b.key, b.encode(delta), b.ttl)
	if err != nil || added {
		return err
	}
	// created concurrently (or the add was refused); one more atomic attempt
	applied, err = b.Adjust(ctx, delta)
	if err != nil {
		return err
	}
	if !applied {
		return pr.ErrRejected
	}
	return nil
}

// Adjust applies delta with the provider's atomic op only when the cell
// exists. It never creates the cell.
func (b *BiasedCounter) Adjust(ctx context.Context, delta int64) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch {
	case delta > 0:
		_, ok, err = b.p.Incr(ctx, b.key, uint64(delta))
	case delta < 0:
		// uint64(-delta) is exact even for math.MinInt64
		_, ok, err = b.p.Decr(ctx, b.key, uint64(-delta))
	default:
		_, ok, err = b.p.Get(ctx, b.key)
	}
	return ok, err
}

func (b *BiasedCounter) Delete(ctx context.Context) error {
	return b.p.Del(ctx, b.key)
}
