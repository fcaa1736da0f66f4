package genstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type localGen struct {
	gen       atomic.Uint64
	updatedAt atomic.Int64 // unix nanos of the last bump
}

// LocalGenStore keeps generations in-process.
// Optional cleanup loop prunes long-inactive entries.
type LocalGenStore struct {
	gens   *xsync.MapOf[string, *localGen]
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

// NewLocalGenStore starts a cleanup loop when both cleanupInterval and
// retention are positive.
func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{gens: xsync.NewMapOf[string, *localGen]()}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	e, ok := s.gens.Load(k)
	if !ok {
		return 0, nil
	}
	return e.gen.Load(), nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	e, _ := s.gens.LoadOrCompute(k, func() *localGen { return &localGen{} })
	g := e.gen.Add(1)
	e.updatedAt.Store(time.Now().UnixNano())
	return g, nil
}

// Cleanup drops entries whose last bump is older than retention. A pruned
// key reads as generation 0 again; any in-flight rescan that observed the
// old generation will skip its cache write, which is the safe direction.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention).UnixNano()
	s.gens.Range(func(k string, e *localGen) bool {
		if at := e.updatedAt.Load(); at != 0 && at < cutoff {
			s.gens.Delete(k)
		}
		return true
	})
}

func (s *LocalGenStore) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}
