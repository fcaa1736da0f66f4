// Package asynchook moves hook calls off the counter's hot path. Events are
// queued to a fixed worker pool and dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{DeferredEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	ctr, _ := shardcount.New("page-views", shardcount.Options{
//	    Provider: provider,
//	    Store:    st,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/shardcount"
)

type Hooks struct {
	inner   shardcount.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends
	closed  bool
	dropped atomic.Uint64
}

var _ shardcount.Hooks = (*Hooks)(nil)

func New(inner shardcount.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) ShardCommitted(name string, index int, delta, drained int64) {
	h.try(func() { h.inner.ShardCommitted(name, index, delta, drained) })
}
func (h *Hooks) ShardDeferred(name string, index int, delta int64, err error) {
	h.try(func() { h.inner.ShardDeferred(name, index, delta, err) })
}
func (h *Hooks) DrainFailed(name string, amount int64, err error) {
	h.try(func() { h.inner.DrainFailed(name, amount, err) })
}
func (h *Hooks) Rescan(name string, shards int, total int64) {
	h.try(func() { h.inner.Rescan(name, shards, total) })
}
func (h *Hooks) CacheError(k, op string, err error) { h.try(func() { h.inner.CacheError(k, op, err) }) }
func (h *Hooks) ProviderSetRejected(k string)       { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenSnapshotError(n string, err error) {
	h.try(func() { h.inner.GenSnapshotError(n, err) })
}
func (h *Hooks) GenBumpError(n string, err error) { h.try(func() { h.inner.GenBumpError(n, err) }) }
func (h *Hooks) DeleteOutage(n string, err error) { h.try(func() { h.inner.DeleteOutage(n, err) }) }
