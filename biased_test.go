package shardcount

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/shardcount/provider"
)

func TestBiasedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	b := NewBiasedCounter(mp, "k", DefaultBias, 0)

	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40), math.MaxInt64, -int64(DefaultBias)} {
		if ok, err := b.Set(ctx, v); err != nil || !ok {
			t.Fatalf("Set(%d): ok=%v err=%v", v, ok, err)
		}
		got, ok, err := b.Get(ctx)
		if err != nil || !ok {
			t.Fatalf("Get after Set(%d): ok=%v err=%v", v, ok, err)
		}
		if got != v {
			t.Fatalf("round trip: want %d, got %d", v, got)
		}
	}
}

func TestBiasedAbsentIsNotZero(t *testing.T) {
	b := NewBiasedCounter(newMemProvider(), "k", DefaultBias, 0)
	v, ok, err := b.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || v != 0 {
		t.Fatalf("absent cell: want (0,false), got (%d,%v)", v, ok)
	}
}

func TestBiasedIncrementCreatesThenAdds(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	b := NewBiasedCounter(mp, "k", DefaultBias, 0)

	if err := b.Increment(ctx, -3); err != nil {
		t.Fatalf("Increment absent: %v", err)
	}
	if got, _, _ := b.Get(ctx); got != -3 {
		t.Fatalf("after first increment want -3, got %d", got)
	}
	if err := b.Increment(ctx, 10); err != nil {
		t.Fatalf("Increment present: %v", err)
	}
	if got, _, _ := b.Get(ctx); got != 7 {
		t.Fatalf("want 7, got %d", got)
	}
}

func TestBiasedIncrementZeroDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	b := NewBiasedCounter(mp, "k", DefaultBias, 0)
	if err := b.Increment(ctx, 0); err != nil {
		t.Fatalf("Increment(0): %v", err)
	}
	if mp.has("k") {
		t.Fatalf("Increment(0) must not create the cell")
	}
}

func TestBiasedAdjustNeverCreates(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	b := NewBiasedCounter(mp, "k", DefaultBias, 0)

	for _, d := range []int64{5, -5, 0} {
		applied, err := b.Adjust(ctx, d)
		if err != nil {
			t.Fatalf("Adjust(%d): %v", d, err)
		}
		if applied {
			t.Fatalf("Adjust(%d) on absent cell reported applied", d)
		}
	}
	if mp.has("k") {
		t.Fatalf("Adjust created the cell")
	}

	if _, err := b.Set(ctx, 1); err != nil {
		t.Fatal(err)
	}
	applied, err := b.Adjust(ctx, math.MinInt64+1)
	if err != nil || !applied {
		t.Fatalf("Adjust present: applied=%v err=%v", applied, err)
	}
}

func TestBiasedConcurrentCreateLosesNothing(t *testing.T) {
	ctx := context.Background()
	b := NewBiasedCounter(newMemProvider(), "k", DefaultBias, 0)

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := b.Increment(ctx, 2); err != nil {
				t.Errorf("Increment: %v", err)
			}
		}()
	}
	wg.Wait()

	if got, _, _ := b.Get(ctx); got != 2*n {
		t.Fatalf("want %d, got %d", 2*n, got)
	}
}

func TestBiasedProviderErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	b := NewBiasedCounter(mp, "k", DefaultBias, 0)
	boom := errors.New("provider down")
	mp.failWrites = boom

	if err := b.Increment(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("Increment: want %v, got %v", boom, err)
	}
	if _, err := b.Set(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("Set: want %v, got %v", boom, err)
	}
}

// rejectingProvider accepts reads but refuses every create.
type rejectingProvider struct{ *memProvider }

func (rejectingProvider) Add(context.Context, string, uint64, time.Duration) (bool, error) {
	return false, nil
}

func TestBiasedIncrementRejected(t *testing.T) {
	b := NewBiasedCounter(rejectingProvider{newMemProvider()}, "k", DefaultBias, 0)
	if err := b.Increment(context.Background(), 1); !errors.Is(err, pr.ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
}
