package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// wrap is the number of characters to wrap help text at
const wrap = 50

func wrapString(text string) string {
	var lines []string
	var cur strings.Builder
	width := 0
	for _, word := range strings.Fields(text) {
		if width > 0 && width+1+len(word) > wrap {
			lines = append(lines, cur.String())
			cur.Reset()
			width = 0
		}
		if width > 0 {
			cur.WriteString(" ")
			width++
		}
		cur.WriteString(word)
		width += len(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}

type config struct {
	Namespace  string
	Cache      string // redis | ristretto | bigcache
	Store      string // memory | redis
	RedisAddr  string
	Codec      string
	Shards     int
	CacheTTL   time.Duration
	DelayedTTL time.Duration
	Timeout    time.Duration
	LogLevel   string
	Logger     string // zap | logrus | slog
	EventLog   bool

	FailOnContention bool
}

// initConfig loads .env files and lets SHARDCOUNT_* variables override flags.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("shardcount")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.InheritedFlags())
}

func loadConfig() (config, error) {
	cfg := config{
		Namespace:  viper.GetString("namespace"),
		Cache:      viper.GetString("cache"),
		Store:      viper.GetString("store"),
		RedisAddr:  viper.GetString("redis-addr"),
		Codec:      viper.GetString("codec"),
		Shards:     viper.GetInt("shards"),
		CacheTTL:   viper.GetDuration("ttl"),
		DelayedTTL: viper.GetDuration("delayed-ttl"),
		Timeout:    viper.GetDuration("timeout"),
		LogLevel:   viper.GetString("log-level"),
		Logger:     viper.GetString("logger"),
		EventLog:   viper.GetBool("event-log"),

		FailOnContention: viper.GetBool("fail-on-contention"),
	}
	switch cfg.Cache {
	case "redis", "ristretto", "bigcache":
	default:
		return cfg, fmt.Errorf("unknown cache %q (redis, ristretto, bigcache)", cfg.Cache)
	}
	switch cfg.Store {
	case "memory", "redis":
	default:
		return cfg, fmt.Errorf("unknown store %q (memory, redis)", cfg.Store)
	}
	switch cfg.Logger {
	case "zap", "logrus", "slog":
	default:
		return cfg, fmt.Errorf("unknown logger %q (zap, logrus, slog)", cfg.Logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg, nil
}

func (c config) needsRedis() bool { return c.Cache == "redis" || c.Store == "redis" }
