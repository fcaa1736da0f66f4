package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/shardcount/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// Cells are plain redis integers. INCRBY/DECRBY are signed 64-bit on the
// server, so values must stay below 2^63.

// incrScript adds ARGV[1] only when the key exists. Returns nil on miss.
var incrScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
return redis.call('INCRBY', KEYS[1], ARGV[1])
`)

// decrScript subtracts ARGV[1] only when the key exists and clamps at zero
// without touching the TTL. Returns nil on miss.
var decrScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local v = redis.call('DECRBY', KEYS[1], ARGV[1])
if v < 0 then
  redis.call('SET', KEYS[1], 0, 'KEEPTTL')
  v = 0
end
return v
`)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) Get(ctx context.Context, key string) (uint64, bool, error) {
	v, err := p.rdb.Get(ctx, key).Uint64()
	if err == goredis.Nil {
		return 0, false, nil // miss
	}
	if err != nil {
		return 0, false, err // transport/server error or foreign value
	}
	return v, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // non-positive TTLs mean "no expiry" per provider contract
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Add(ctx context.Context, key string, value uint64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return p.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (p *Redis) Incr(ctx context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.run(ctx, incrScript, key, delta)
}

func (p *Redis) Decr(ctx context.Context, key string, delta uint64) (uint64, bool, error) {
	return p.run(ctx, decrScript, key, delta)
}

func (p *Redis) run(ctx context.Context, s *goredis.Script, key string, delta uint64) (uint64, bool, error) {
	v, err := s.Run(ctx, p.rdb, []string{key}, delta).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(v), true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
