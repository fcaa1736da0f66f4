package shardcount

import "context"

// DelayedBuffer holds the sum of deltas accepted from callers whose shard
// write failed. The next successful shard write folds the pending amount in
// and then drains exactly that amount, so deltas deferred concurrently with
// the drain survive.
type DelayedBuffer struct {
	c *BiasedCounter
}

func NewDelayedBuffer(c *BiasedCounter) *DelayedBuffer { return &DelayedBuffer{c: c} }

// Pending returns the buffered delta; an absent buffer is zero.
func (d *DelayedBuffer) Pending(ctx context.Context) (int64, error) {
	v, _, err := d.c.Get(ctx)
	return v, err
}

// Defer adds a delta that could not be persisted.
func (d *DelayedBuffer) Defer(ctx context.Context, delta int64) error {
	return d.c.Increment(ctx, delta)
}

// Drain subtracts amount after it was folded into a committed shard. An
// absent buffer is left absent: whatever held amount is already gone.
func (d *DelayedBuffer) Drain(ctx context.Context, amount int64) error {
	if amount == 0 {
		return nil
	}
	_, err := d.c.Adjust(ctx, -amount)
	return err
}

// Clear drops the buffer entirely.
func (d *DelayedBuffer) Clear(ctx context.Context) error {
	return d.c.Delete(ctx)
}
