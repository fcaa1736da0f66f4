package shardcount

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/shardcount/internal/util"
	"github.com/unkn0wn-root/shardcount/store"
)

// ShardPicker returns an index in [0, n). It must be safe for concurrent use.
type ShardPicker func(n int) int

// ShardSet is the persistent half of a counter: numShards records in the
// store plus the delayed buffer.
type ShardSet struct {
	name      string
	id        string // store identity: namespace + name
	numShards int
	maxShards int
	store     store.Store
	delayed   *DelayedBuffer
	pick      ShardPicker
	log       Logger
	hooks     Hooks
}

// Apply adds delta to one random shard, folding in whatever the delayed
// buffer holds. committed=false with a nil error means the write failed
// transiently and delta now sits in the delayed buffer.
func (s *ShardSet) Apply(ctx context.Context, delta int64) (bool, error) {
	index := s.pick(s.numShards) + 1
	key := util.ShardKey(s.id, index)

	pending, err := s.delayed.Pending(ctx)
	if err != nil {
		// fold nothing; the buffer keeps its balance for a later write
		s.log.Warn("delayed buffer read failed", Fields{"name": s.name, "err": err})
		pending = 0
	}

	err = s.store.RunInTransaction(ctx, key, func(sh *store.Shard) error {
		if sh.Name == "" {
			sh.Name, sh.Index = s.id, index
		}
		sh.Count += delta + pending
		return nil
	})
	if err == nil {
		s.hooks.ShardCommitted(s.name, index, delta, pending)
		if pending != 0 {
			if derr := s.delayed.Drain(ctx, pending); derr != nil {
				s.log.Error("delayed buffer drain failed; count over-reported until repaired",
					Fields{"name": s.name, "index": index, "amount": pending, "err": derr})
				s.hooks.DrainFailed(s.name, pending, derr)
			}
		}
		return true, nil
	}

	if !store.IsTransient(err) {
		s.log.Error("shard write failed", Fields{"name": s.name, "index": index, "delta": delta, "err": err})
		return false, fmt.Errorf("shardcount: apply %q shard %d: %w", s.name, index, err)
	}

	// only delta: pending never left the buffer
	if berr := s.delayed.Defer(ctx, delta); berr != nil {
		s.log.Error("shard write failed and delta could not be deferred",
			Fields{"name": s.name, "index": index, "delta": delta, "err": err, "bufferErr": berr})
		return false, &DeferError{Name: s.name, Delta: delta, TxErr: err, BufferErr: berr}
	}
	s.log.Warn("shard write deferred", Fields{"name": s.name, "index": index, "delta": delta, "err": err})
	s.hooks.ShardDeferred(s.name, index, delta, err)
	return false, nil
}

// Sum rescans every shard up to maxShards and adds the delayed delta.
func (s *ShardSet) Sum(ctx context.Context) (int64, error) {
	shards, err := s.store.QueryByName(ctx, s.id, s.maxShards)
	if err != nil {
		return 0, fmt.Errorf("shardcount: rescan %q: %w", s.name, err)
	}
	var total int64
	for _, sh := range shards {
		total += sh.Count
	}
	pending, err := s.delayed.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("shardcount: rescan %q: delayed buffer: %w", s.name, err)
	}
	total += pending
	s.hooks.Rescan(s.name, len(shards), total)
	return total, nil
}

// Purge deletes every shard up to maxShards; the configured count may have
// shrunk since older shards were written.
func (s *ShardSet) Purge(ctx context.Context) error {
	shards, err := s.store.QueryByName(ctx, s.id, s.maxShards)
	if err != nil {
		return err
	}
	if len(shards) == 0 {
		return nil
	}
	keys := make([]string, len(shards))
	for i, sh := range shards {
		keys[i] = util.ShardKey(s.id, sh.Index)
	}
	return s.store.Delete(ctx, keys...)
}
