package main

import (
	rc "github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
)

// registerRistrettoMetrics exposes ristretto's internal counters. They are
// read at scrape time, so nothing is copied on the cache's hot path.
func registerRistrettoMetrics(reg prometheus.Registerer, m *rc.Metrics) error {
	counters := []struct {
		name, help string
		read       func() uint64
	}{
		{"hits_total", "Cache cells found", m.Hits},
		{"misses_total", "Cache cells not found", m.Misses},
		{"keys_added_total", "Cells admitted", m.KeysAdded},
		{"keys_evicted_total", "Cells evicted; an evicted delayed buffer loses deferred deltas", m.KeysEvicted},
		{"sets_dropped_total", "Writes dropped by contention on the set buffer", m.SetsDropped},
		{"sets_rejected_total", "Writes refused by the admission policy", m.SetsRejected},
	}
	for _, c := range counters {
		read := c.read
		err := reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "shardcount",
			Subsystem: "ristretto",
			Name:      c.name,
			Help:      c.help,
		}, func() float64 { return float64(read()) }))
		if err != nil {
			return err
		}
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "shardcount",
		Subsystem: "ristretto",
		Name:      "hit_ratio",
		Help:      "Hits over hits plus misses",
	}, m.Ratio))
}
