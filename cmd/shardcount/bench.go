package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/shardcount"
	"github.com/unkn0wn-root/shardcount/hooks/prom"
)

var benchCmd = &cobra.Command{
	Use:   "bench [name]",
	Short: "Hammers a counter with concurrent increments and checks the total",
	Long: `Runs --ops increments of +1 spread over --workers goroutines, then rescans
the counter and checks that every accepted increment (committed or deferred)
is in the total.`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("workers", 16, wrapString("Number of concurrent writers"))
	benchCmd.Flags().Int("ops", 10000, wrapString("Total number of increments"))
	benchCmd.Flags().Bool("reset", true, wrapString("Delete the counter before starting"))
	benchCmd.Flags().String("metrics-addr", "", wrapString("Serve Prometheus metrics on this address (e.g. :9090) while the bench runs"))
	benchCmd.Flags().Duration("hold", 0, wrapString("Keep serving metrics this long after the bench finishes"))
}

type benchResult struct {
	committed, deferred, failed atomic.Int64
}

func runBench(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ph, err := prom.New(reg, "")
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	return withCounter(envOptions{hooks: []shardcount.Hooks{ph}, reg: reg}, bench)(cmd, args)
}

func bench(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, _ []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	ops, _ := cmd.Flags().GetInt("ops")
	reset, _ := cmd.Flags().GetBool("reset")
	hold, _ := cmd.Flags().GetDuration("hold")
	if workers <= 0 {
		workers = 1
	}

	var base int64
	if reset {
		if err := c.Delete(ctx); err != nil {
			return err
		}
	} else {
		v, err := c.Count(ctx, true)
		if err != nil {
			return err
		}
		base = v
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bench %q: %d ops, %d workers, %d shards, GOMAXPROCS=%d\n",
		c.Name(), ops, workers, c.NumShards(), runtime.GOMAXPROCS(0))

	var (
		res  benchResult
		next atomic.Int64
		wg   sync.WaitGroup
	)
	start := time.Now()
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for next.Add(1) <= int64(ops) {
				committed, err := c.Increment(ctx, 1)
				switch {
				case err != nil:
					res.failed.Add(1)
				case committed:
					res.committed.Add(1)
				default:
					res.deferred.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	total, err := c.Count(ctx, true)
	if err != nil {
		return err
	}
	accepted := res.committed.Load() + res.deferred.Load()
	fmt.Fprintf(out, "elapsed %s (%.0f ops/s)\n", elapsed.Round(time.Millisecond), float64(ops)/elapsed.Seconds())
	fmt.Fprintf(out, "committed %d, deferred %d, failed %d\n", res.committed.Load(), res.deferred.Load(), res.failed.Load())
	fmt.Fprintf(out, "total %d, expected %d\n", total, base+accepted)

	if hold > 0 {
		fmt.Fprintf(out, "holding for %s\n", hold)
		select {
		case <-time.After(hold):
		case <-cmd.Context().Done():
		}
	}
	if total != base+accepted {
		return fmt.Errorf("count mismatch: total %d, expected %d", total, base+accepted)
	}
	return nil
}
