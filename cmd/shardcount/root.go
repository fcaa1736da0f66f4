package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/shardcount"
)

const Version = "0.3.0"

var (
	rootCmd = &cobra.Command{
		Use:   "shardcount",
		Short: "sharded distributed counters",
		Long: fmt.Sprintf(`shardcount (v%s)

Inspect and update sharded counters. Shards live in the store (memory or
redis); totals are cached in redis, ristretto or bigcache. Flags can also
be set through SHARDCOUNT_* environment variables or a .env file.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shardcount",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shardcount v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(getCmd, incCmd, decCmd, setCmd, deleteCmd, benchCmd)

	f := rootCmd.PersistentFlags()
	f.String("namespace", "default", wrapString("Cache key namespace; counters in different namespaces never share cached totals"))
	f.String("cache", "redis", wrapString("Where cached totals and the delayed buffer live (redis, ristretto, bigcache)"))
	f.String("store", "redis", wrapString("Where shard records live (memory, redis). memory only lives as long as the process"))
	f.String("redis-addr", "localhost:6379", wrapString("Address of the redis server"))
	f.String("codec", "json", wrapString("Shard record encoding in the redis store (json, cbor, msgpack, proto)"))
	f.Int("shards", shardcount.DefaultNumShards, wrapString(fmt.Sprintf("Number of shards per counter (max %d)", shardcount.DefaultMaxShards)))
	f.Duration("ttl", shardcount.DefaultCacheTTL, wrapString("Lifetime of a cached total"))
	f.Duration("delayed-ttl", 0, wrapString("Lifetime of the delayed buffer; 0 never expires"))
	f.Duration("timeout", 0, wrapString("Per-command deadline; 0 means 10s"))
	f.String("log-level", "warn", wrapString("Log level (debug, info, warn, error)"))
	f.String("logger", "zap", wrapString("Logging backend (zap, logrus, slog)"))
	f.Bool("event-log", false, wrapString("Log counter events (deferrals, drains, rescans) through slog, sampled"))
	f.Bool("fail-on-contention", false, wrapString("memory store: fail a busy shard transaction instead of waiting"))
}

// withCounter runs fn against the counter named by the first argument.
func withCounter(eo envOptions, fn func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		e, err := openEnv(ctx, cfg, eo)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.Close(context.Background()); cerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "close: %v\n", cerr)
			}
		}()

		c, err := e.counter(args[0])
		if err != nil {
			return err
		}
		return fn(ctx, cmd, c, args[1:])
	}
}
