package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func newTestProvider(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("SHARDCOUNT_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHARDCOUNT_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	p, err := New(Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestNewRejectsNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("want ErrNilClient, got %v", err)
	}
}

func TestRedisIncrDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	key := "shardcount-test:" + t.Name()
	_ = p.Del(ctx, key)
	t.Cleanup(func() { _ = p.Del(ctx, key) })

	if _, ok, err := p.Incr(ctx, key, 5); err != nil || ok {
		t.Fatalf("Incr on miss: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := p.Get(ctx, key); ok {
		t.Fatalf("Incr must not create the key")
	}
}

func TestRedisAddIncrDecr(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	key := "shardcount-test:" + t.Name()
	_ = p.Del(ctx, key)
	t.Cleanup(func() { _ = p.Del(ctx, key) })

	if added, err := p.Add(ctx, key, 10, time.Minute); err != nil || !added {
		t.Fatalf("Add: added=%v err=%v", added, err)
	}
	if added, err := p.Add(ctx, key, 99, time.Minute); err != nil || added {
		t.Fatalf("second Add must not overwrite: added=%v err=%v", added, err)
	}
	if v, ok, err := p.Incr(ctx, key, 5); err != nil || !ok || v != 15 {
		t.Fatalf("Incr: v=%d ok=%v err=%v", v, ok, err)
	}
	if v, ok, err := p.Decr(ctx, key, 100); err != nil || !ok || v != 0 {
		t.Fatalf("Decr clamp: v=%d ok=%v err=%v", v, ok, err)
	}
	if v, ok, err := p.Get(ctx, key); err != nil || !ok || v != 0 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
}
