// Package memstore is an in-process transactional store. Each record has its
// own mutex, so transactions on different shards never contend.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/unkn0wn-root/shardcount/store"
)

type record struct {
	mu      sync.Mutex
	shard   store.Shard
	exists  bool
	deleted bool // unlinked from the map; writers must reload
}

type Options struct {
	// FailOnContention makes a transaction on a busy record fail immediately
	// with store.ErrTransactionFailed instead of waiting for the lock.
	FailOnContention bool
}

type Store struct {
	recs *xsync.MapOf[string, *record]
	opts Options
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	return &Store{recs: xsync.NewMapOf[string, *record](), opts: opts}
}

// lock returns the live record for key with its mutex held.
func (s *Store) lock(ctx context.Context, key string) (*record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := s.recs.LoadOrCompute(key, func() *record { return &record{} })
		if s.opts.FailOnContention {
			if !r.mu.TryLock() {
				return nil, fmt.Errorf("%w: %s busy", store.ErrTransactionFailed, key)
			}
		} else {
			r.mu.Lock()
		}
		if r.deleted {
			r.mu.Unlock()
			continue
		}
		return r, nil
	}
}

func (s *Store) RunInTransaction(ctx context.Context, key string, fn store.TxFunc) error {
	r, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	sh := r.shard // work on a copy; abort leaves the record untouched
	if err := fn(&sh); err != nil {
		return err
	}
	r.shard = sh
	r.exists = true
	return nil
}

func (s *Store) Get(_ context.Context, key string) (store.Shard, bool, error) {
	r, ok := s.recs.Load(key)
	if !ok {
		return store.Shard{}, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exists || r.deleted {
		return store.Shard{}, false, nil
	}
	return r.shard, true, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		r, ok := s.recs.LoadAndDelete(k)
		if !ok {
			continue
		}
		r.mu.Lock()
		r.deleted = true
		r.mu.Unlock()
	}
	return nil
}

// QueryByName scans all records; results are ordered by shard index.
func (s *Store) QueryByName(_ context.Context, name string, limit int) ([]store.Shard, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []store.Shard
	s.recs.Range(func(_ string, r *record) bool {
		r.mu.Lock()
		if r.exists && !r.deleted && r.shard.Name == name {
			out = append(out, r.shard)
		}
		r.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports the number of live records.
func (s *Store) Len() int {
	n := 0
	s.recs.Range(func(_ string, r *record) bool {
		r.mu.Lock()
		if r.exists && !r.deleted {
			n++
		}
		r.mu.Unlock()
		return true
	})
	return n
}

func (s *Store) Close(context.Context) error { return nil }
