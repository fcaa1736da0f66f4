package shardcount

import (
	"context"
	"testing"
)

func TestMultiHooksFanOut(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingHooks{}, &recordingHooks{}
	st := newFaultyStore()
	c := newTestCounter(t, "c", newMemProvider(), st, func(o *Options) { o.Hooks = MultiHooks{a, b} })

	st.failTransient(1)
	c.Increment(ctx, 2)
	c.Increment(ctx, 1)
	mustCount(t, c, true)

	for i, h := range []*recordingHooks{a, b} {
		if len(h.deferred) != 1 || len(h.committed) != 1 || h.rescans != 1 {
			t.Fatalf("hooks[%d]: deferred=%v committed=%v rescans=%d", i, h.deferred, h.committed, h.rescans)
		}
	}
}
