package main

import (
	"context"
	"errors"
	"fmt"
	stdslog "log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/shardcount"
	"github.com/unkn0wn-root/shardcount/codec"
	"github.com/unkn0wn-root/shardcount/genstore"
	asynchook "github.com/unkn0wn-root/shardcount/hooks/async"
	logruslog "github.com/unkn0wn-root/shardcount/log/logrus"
	slogadapter "github.com/unkn0wn-root/shardcount/log/slog"
	zaplog "github.com/unkn0wn-root/shardcount/log/zap"
	pr "github.com/unkn0wn-root/shardcount/provider"
	bigprov "github.com/unkn0wn-root/shardcount/provider/bigcache"
	redisprov "github.com/unkn0wn-root/shardcount/provider/redis"
	ristprov "github.com/unkn0wn-root/shardcount/provider/ristretto"
	"github.com/unkn0wn-root/shardcount/sloghooks"
	"github.com/unkn0wn-root/shardcount/store"
	"github.com/unkn0wn-root/shardcount/store/memstore"
	"github.com/unkn0wn-root/shardcount/store/redisstore"
)

// env is everything a command needs to build counters, plus the resources
// to release afterwards.
type env struct {
	cfg    config
	reg    prometheus.Registerer // nil => no cache metrics
	zl     *zap.Logger
	log    shardcount.Logger
	opts   shardcount.Options
	closer []func(context.Context) error
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func newLogger(cfg config, zl *zap.Logger) (shardcount.Logger, error) {
	switch cfg.Logger {
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(lvl)
		return logruslog.New(l), nil
	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, err
		}
		h := stdslog.NewTextHandler(os.Stderr, &stdslog.HandlerOptions{Level: lvl})
		return slogadapter.New(stdslog.New(h)), nil
	default:
		return zaplog.New(zl), nil
	}
}

// envOptions carries what a command attaches beyond the config.
type envOptions struct {
	hooks []shardcount.Hooks
	reg   prometheus.Registerer
}

func openEnv(ctx context.Context, cfg config, eo envOptions) (*env, error) {
	zl, err := newZap(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	e := &env{cfg: cfg, zl: zl, reg: eo.reg}
	e.closer = append(e.closer, func(context.Context) error { _ = zl.Sync(); return nil })

	if e.log, err = newLogger(cfg, zl); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if err := e.open(ctx, eo.hooks); err != nil {
		_ = e.Close(context.Background())
		return nil, err
	}
	return e, nil
}

func (e *env) open(ctx context.Context, hooks []shardcount.Hooks) error {
	cfg := e.cfg

	var rdb redis.UniversalClient
	if cfg.needsRedis() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		// providers and stores share the client; close it last
		e.closer = append(e.closer, func(context.Context) error { return rdb.Close() })
		e.zl.Debug("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	p, err := e.openProvider(rdb)
	if err != nil {
		return err
	}
	e.opts.Provider = p

	// an evicting cache must not hold the only copy of deferred deltas
	if rdb != nil && cfg.Cache != "redis" {
		dp, err := redisprov.New(redisprov.Config{Client: rdb})
		if err != nil {
			return err
		}
		e.opts.DelayedProvider = dp
	}

	st, err := e.openStore(rdb)
	if err != nil {
		return err
	}
	e.opts.Store = st

	if rdb != nil {
		gs, err := genstore.NewRedisGenStore(genstore.RedisConfig{
			Client:    rdb,
			Namespace: cfg.Namespace,
			TTL:       24 * time.Hour,
		})
		if err != nil {
			return err
		}
		e.opts.GenStore = gs
	} else {
		gs := genstore.NewLocalGenStore(time.Minute, time.Hour)
		e.closer = append(e.closer, gs.Close)
		e.opts.GenStore = gs
	}

	if cfg.EventLog {
		ah := asynchook.New(sloghooks.New(stdslog.Default(), sloghooks.Options{
			CommitEvery: 100,
			RescanEvery: 10,
		}), 1, 1024)
		e.closer = append(e.closer, func(context.Context) error {
			ah.Close()
			if n := ah.Dropped(); n > 0 {
				e.zl.Warn("event log dropped events", zap.Uint64("dropped", n))
			}
			return nil
		})
		hooks = append(hooks, ah)
	}
	switch len(hooks) {
	case 0:
	case 1:
		e.opts.Hooks = hooks[0]
	default:
		e.opts.Hooks = shardcount.MultiHooks(hooks)
	}

	e.opts.Namespace = cfg.Namespace
	e.opts.NumShards = cfg.Shards
	e.opts.CacheTTL = cfg.CacheTTL
	e.opts.DelayedTTL = cfg.DelayedTTL
	e.opts.Logger = e.log
	return nil
}

func (e *env) openProvider(rdb redis.UniversalClient) (pr.Provider, error) {
	var (
		p   pr.Provider
		err error
	)
	switch e.cfg.Cache {
	case "redis":
		p, err = redisprov.New(redisprov.Config{Client: rdb})
	case "ristretto":
		p, err = e.openRistretto()
	case "bigcache":
		p, err = bigprov.New(bigprov.Config{LifeWindow: 10 * time.Minute, HardMaxCacheSizeMB: 64})
	}
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", e.cfg.Cache, err)
	}
	if e.cfg.Cache != "redis" {
		e.closer = append(e.closer, p.Close)
	}
	return p, nil
}

// openRistretto exports the cache's own hit/miss/drop counters when a
// metrics registry is attached.
func (e *env) openRistretto() (pr.Provider, error) {
	rp, err := ristprov.New(ristprov.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
		Metrics:     e.reg != nil,
	})
	if err != nil {
		return nil, err
	}
	if e.reg != nil {
		if err := registerRistrettoMetrics(e.reg, rp.Metrics()); err != nil {
			_ = rp.Close(context.Background())
			return nil, err
		}
	}
	return rp, nil
}

func (e *env) openStore(rdb redis.UniversalClient) (store.Store, error) {
	if e.cfg.Store == "memory" {
		return memstore.New(memstore.Options{FailOnContention: e.cfg.FailOnContention}), nil
	}
	c, err := codec.ForShards(e.cfg.Codec)
	if err != nil {
		return nil, err
	}
	return redisstore.New(redisstore.Config{
		Client: rdb,
		Prefix: "shardcount:" + e.cfg.Namespace + ":",
		Codec:  c,
	})
}

func (e *env) counter(name string) (shardcount.Counter, error) {
	return shardcount.New(name, e.opts)
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closer) - 1; i >= 0; i-- {
		if err := e.closer[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
