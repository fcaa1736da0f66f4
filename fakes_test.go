package shardcount

import (
	"context"
	"errors"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/shardcount/provider"
	"github.com/unkn0wn-root/shardcount/store"
	"github.com/unkn0wn-root/shardcount/store/memstore"
)

type memEntry struct {
	v   uint64
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry

	failWrites error // returned by every mutating call when set
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) live(key string) (memEntry, bool) {
	e, ok := p.m[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return memEntry{}, false
	}
	return e, true
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (p *memProvider) Get(_ context.Context, key string) (uint64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.live(key)
	return e.v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWrites != nil {
		return false, p.failWrites
	}
	p.m[key] = memEntry{v: value, exp: expiry(ttl)}
	return true, nil
}

func (p *memProvider) Add(_ context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWrites != nil {
		return false, p.failWrites
	}
	if _, ok := p.live(key); ok {
		return false, nil
	}
	p.m[key] = memEntry{v: value, exp: expiry(ttl)}
	return true, nil
}

func (p *memProvider) Incr(_ context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.update(key, func(v uint64) uint64 { return v + delta })
}

func (p *memProvider) Decr(_ context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.update(key, func(v uint64) uint64 { return pr.SubClamp(v, delta) })
}

func (p *memProvider) update(key string, fn func(uint64) uint64) (uint64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWrites != nil {
		return 0, false, p.failWrites
	}
	e, ok := p.live(key)
	if !ok {
		return 0, false, nil
	}
	e.v = fn(e.v)
	p.m[key] = e
	return e.v, true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.live(key)
	return ok
}

// faultyStore wraps memstore and injects failures.
type faultyStore struct {
	*memstore.Store

	mu        sync.Mutex
	failNext  int   // transient failures to inject before succeeding again
	permanent error // non-transient error returned by every transaction
	queryErr  error
	inTx      func() // runs inside a successful transaction, before fn
}

var _ store.Store = (*faultyStore)(nil)

func newFaultyStore() *faultyStore { return &faultyStore{Store: memstore.New(memstore.Options{})} }

func (s *faultyStore) failTransient(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

func (s *faultyStore) RunInTransaction(ctx context.Context, key string, fn store.TxFunc) error {
	s.mu.Lock()
	perm, inTx := s.permanent, s.inTx
	fail := s.failNext > 0
	if fail {
		s.failNext--
	}
	s.mu.Unlock()

	if perm != nil {
		return perm
	}
	if fail {
		return errors.Join(store.ErrTransactionFailed, errors.New("injected contention on "+key))
	}
	return s.Store.RunInTransaction(ctx, key, func(sh *store.Shard) error {
		if inTx != nil {
			inTx()
		}
		return fn(sh)
	})
}

func (s *faultyStore) QueryByName(ctx context.Context, name string, limit int) ([]store.Shard, error) {
	s.mu.Lock()
	qerr := s.queryErr
	s.mu.Unlock()
	if qerr != nil {
		return nil, qerr
	}
	return s.Store.QueryByName(ctx, name, limit)
}

// fixedPicker always selects the shard at zero-based index i.
func fixedPicker(i int) ShardPicker { return func(int) int { return i } }

// roundRobin cycles through every shard.
func roundRobin() ShardPicker {
	var (
		mu   sync.Mutex
		next int
	)
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		i := next % n
		next++
		return i
	}
}

type recordingHooks struct {
	NopHooks
	mu        sync.Mutex
	committed []int64 // drained amounts per commit
	deferred  []int64
	drainErrs int
	rescans   int
	outages   int
}

func (h *recordingHooks) ShardCommitted(_ string, _ int, _, drained int64) {
	h.mu.Lock()
	h.committed = append(h.committed, drained)
	h.mu.Unlock()
}

func (h *recordingHooks) ShardDeferred(_ string, _ int, delta int64, _ error) {
	h.mu.Lock()
	h.deferred = append(h.deferred, delta)
	h.mu.Unlock()
}

func (h *recordingHooks) DrainFailed(string, int64, error) {
	h.mu.Lock()
	h.drainErrs++
	h.mu.Unlock()
}

func (h *recordingHooks) Rescan(string, int, int64) {
	h.mu.Lock()
	h.rescans++
	h.mu.Unlock()
}

func (h *recordingHooks) DeleteOutage(string, error) {
	h.mu.Lock()
	h.outages++
	h.mu.Unlock()
}
