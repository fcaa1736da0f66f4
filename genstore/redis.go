package genstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("genstore: nil redis client")

// bumpScript increments and refreshes the expiry in one atomic step, so a
// generation can never be left without its TTL.
var bumpScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if tonumber(ARGV[1]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// RedisGenStore shares generations between every process that counts with
// the same names, and survives restarts.
type RedisGenStore struct {
	rdb         redis.UniversalClient
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ GenStore = (*RedisGenStore)(nil)

type RedisConfig struct {
	Client    redis.UniversalClient
	Namespace string // should match the counters' Options.Namespace
	// TTL bounds how long an idle generation lives. It must outlast the
	// slowest rescan, or a late cache fill could slip past a Delete.
	// 0 disables expiry.
	TTL         time.Duration
	CloseClient bool // set true only if the gen store exclusively owns the client
}

func NewRedisGenStore(cfg RedisConfig) (*RedisGenStore, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &RedisGenStore{
		rdb:         cfg.Client,
		prefix:      "gen:" + cfg.Namespace + ":",
		ttl:         cfg.TTL,
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *RedisGenStore) key(k string) string { return s.prefix + k }

// Snapshot returns the current generation; a missing key is generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, key string) (uint64, error) {
	u, err := s.rdb.Get(ctx, s.key(key)).Uint64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("genstore: snapshot %s: %w", key, err)
	}
	return u, nil
}

func (s *RedisGenStore) Bump(ctx context.Context, key string) (uint64, error) {
	v, err := bumpScript.Run(ctx, s.rdb, []string{s.key(key)}, s.ttl.Milliseconds()).Uint64()
	if err != nil {
		return 0, fmt.Errorf("genstore: bump %s: %w", key, err)
	}
	return v, nil
}

// Cleanup is a no-op; Redis expires idle generations when TTL is set.
func (s *RedisGenStore) Cleanup(time.Duration) {}

func (s *RedisGenStore) Close(context.Context) error {
	if s.closeClient {
		return s.rdb.Close()
	}
	return nil
}
