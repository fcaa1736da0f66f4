package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/shardcount/store"
)

func incr(name string, index int, by int64) store.TxFunc {
	return func(s *store.Shard) error {
		if s.Name == "" {
			s.Name, s.Index = name, index
		}
		s.Count += by
		return nil
	}
}

func TestCreateOnFirstTransaction(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})

	if _, ok, _ := s.Get(ctx, "shard:hits:1"); ok {
		t.Fatalf("expected miss before first write")
	}
	if err := s.RunInTransaction(ctx, "shard:hits:1", incr("hits", 1, 3)); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	got, ok, err := s.Get(ctx, "shard:hits:1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != (store.Shard{Name: "hits", Index: 1, Count: 3}) {
		t.Fatalf("unexpected shard %+v", got)
	}
}

func TestAbortLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})
	_ = s.RunInTransaction(ctx, "k", incr("hits", 1, 5))

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, "k", func(sh *store.Shard) error {
		sh.Count = 1000
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want fn error, got %v", err)
	}
	if got, _, _ := s.Get(ctx, "k"); got.Count != 5 {
		t.Fatalf("aborted transaction leaked: %+v", got)
	}
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := s.RunInTransaction(ctx, "k", incr("hits", 1, 1)); err != nil {
					t.Errorf("tx: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	if got, _, _ := s.Get(ctx, "k"); got.Count != 1000 {
		t.Fatalf("got %d want 1000", got.Count)
	}
}

func TestFailOnContention(t *testing.T) {
	ctx := context.Background()
	s := New(Options{FailOnContention: true})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.RunInTransaction(ctx, "k", func(sh *store.Shard) error {
			close(entered)
			<-release
			sh.Count++
			return nil
		})
	}()
	<-entered

	err := s.RunInTransaction(ctx, "k", incr("hits", 1, 1))
	if !store.IsTransient(err) {
		t.Fatalf("want transient failure on busy record, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder: %v", err)
	}
}

func TestQueryByNameFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})
	for i := 1; i <= 5; i++ {
		_ = s.RunInTransaction(ctx, "hits:"+string(rune('0'+i)), incr("hits", i, int64(i)))
	}
	_ = s.RunInTransaction(ctx, "other:1", incr("other", 1, 100))

	got, err := s.QueryByName(ctx, "hits", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d shards want 5", len(got))
	}
	for i, sh := range got {
		if sh.Index != i+1 || sh.Name != "hits" {
			t.Fatalf("unexpected order/content at %d: %+v", i, sh)
		}
	}

	got, _ = s.QueryByName(ctx, "hits", 2)
	if len(got) != 2 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	if got, _ := s.QueryByName(ctx, "hits", 0); got != nil {
		t.Fatalf("limit 0 must return nothing")
	}
}

func TestDeleteThenRecreate(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})
	_ = s.RunInTransaction(ctx, "k", incr("hits", 1, 9))

	if err := s.Delete(ctx, "k", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("deleted record still visible")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d want 0", s.Len())
	}
	_ = s.RunInTransaction(ctx, "k", incr("hits", 1, 1))
	if got, _, _ := s.Get(ctx, "k"); got.Count != 1 {
		t.Fatalf("recreated record should start from zero, got %d", got.Count)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(Options{})
	if err := s.RunInTransaction(ctx, "k", incr("hits", 1, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
