// Package redisstore keeps shard records in Redis and runs single-key
// transactions with WATCH/MULTI/EXEC. A transaction that loses the optimistic
// race fails with store.ErrTransactionFailed; it is never retried here.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/shardcount/codec"
	"github.com/unkn0wn-root/shardcount/internal/util"
	"github.com/unkn0wn-root/shardcount/store"
)

var (
	ErrNilClient    = errors.New("redisstore: nil client")
	ErrBracedPrefix = errors.New("redisstore: prefix must not contain braces")
)

type Config struct {
	Client redis.UniversalClient
	// Prefix is prepended to every record key, e.g. "app:". It must not
	// contain '{': shard keys carry a hash tag so a counter's shards share
	// one Redis Cluster slot, and an earlier brace would replace that tag.
	Prefix      string
	Codec       codec.Codec[store.Shard] // nil => JSON
	CloseClient bool                     // set true only if the store exclusively owns the client
}

type Store struct {
	rdb         redis.UniversalClient
	prefix      string
	codec       codec.Codec[store.Shard]
	closeClient bool
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if strings.ContainsAny(cfg.Prefix, "{}") {
		return nil, ErrBracedPrefix
	}
	c := cfg.Codec
	if c == nil {
		c = codec.JSON[store.Shard]{}
	}
	return &Store{rdb: cfg.Client, prefix: cfg.Prefix, codec: c, closeClient: cfg.CloseClient}, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) RunInTransaction(ctx context.Context, key string, fn store.TxFunc) error {
	k := s.key(key)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var sh store.Shard
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if sh, err = s.codec.Decode(raw); err != nil {
				return fmt.Errorf("redisstore: decode %s: %w", key, err)
			}
		}
		if err := fn(&sh); err != nil {
			return err
		}
		b, err := s.codec.Encode(sh)
		if err != nil {
			return fmt.Errorf("redisstore: encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, b, 0)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s: %v", store.ErrTransactionFailed, key, err)
	}
	return err
}

func (s *Store) Get(ctx context.Context, key string) (store.Shard, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return store.Shard{}, false, nil
	}
	if err != nil {
		return store.Shard{}, false, err
	}
	sh, err := s.codec.Decode(raw)
	if err != nil {
		return store.Shard{}, false, fmt.Errorf("redisstore: decode %s: %w", key, err)
	}
	return sh, true, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// QueryByName reads the deterministic shard keys 1..limit in one MGET.
// Records not written through shardcount's key scheme are not found.
func (s *Store) QueryByName(ctx context.Context, name string, limit int) ([]store.Shard, error) {
	if limit <= 0 {
		return nil, nil
	}
	keys := make([]string, limit)
	for i := range keys {
		keys[i] = s.key(util.ShardKey(name, i+1))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]store.Shard, 0, len(vals))
	for i, v := range vals {
		var raw []byte
		switch vv := v.(type) {
		case nil:
			continue
		case string:
			raw = []byte(vv)
		case []byte:
			raw = vv
		default:
			return nil, fmt.Errorf("redisstore: unexpected %T at %s", v, keys[i])
		}
		sh, err := s.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("redisstore: decode %s: %w", keys[i], err)
		}
		if sh.Name != name {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

// Close closes the underlying client only when this store owns it.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			return err
		}
	}
	return nil
}
