// Package prom exports counter events as Prometheus metrics. Metrics carry
// no per-counter labels so cardinality stays fixed however many counters a
// process owns.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/shardcount"
)

type Hooks struct {
	committed     prometheus.Counter
	deferred      prometheus.Counter
	deferredDelta prometheus.Counter
	drained       prometheus.Counter
	drainFailed   prometheus.Counter
	rescans       prometheus.Counter
	rescanShards  prometheus.Histogram
	cacheErrors   *prometheus.CounterVec
	setRejected   prometheus.Counter
	genErrors     *prometheus.CounterVec
	deleteOutages prometheus.Counter
}

var _ shardcount.Hooks = (*Hooks)(nil)

// New registers the metrics on reg; nil means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "shardcount"
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	h := &Hooks{
		committed:     counter("shard_commits_total", "Shard transactions that committed"),
		deferred:      counter("shard_deferrals_total", "Shard writes that failed transiently and went to the delayed buffer"),
		deferredDelta: counter("deferred_delta_abs_total", "Sum of |delta| parked in delayed buffers"),
		drained:       counter("drained_delta_abs_total", "Sum of |delta| folded from delayed buffers into shards"),
		drainFailed:   counter("drain_failures_total", "Committed folds whose delayed buffer could not be reduced"),
		rescans:       counter("rescans_total", "Full shard rescans"),
		rescanShards: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rescan_shards",
			Help:      "Shards read per rescan",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Cache provider failures by operation",
		}, []string{"op"}),
		setRejected: counter("cache_set_rejected_total", "Cache writes refused by the provider"),
		genErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gen_errors_total",
			Help:      "Generation store failures by operation",
		}, []string{"op"}),
		deleteOutages: counter("delete_outages_total", "Deletes that left shards, buffer or cache behind"),
	}
	for _, c := range []prometheus.Collector{
		h.committed, h.deferred, h.deferredDelta, h.drained, h.drainFailed,
		h.rescans, h.rescanShards, h.cacheErrors, h.setRejected, h.genErrors, h.deleteOutages,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func abs(v int64) float64 {
	if v < 0 {
		return -float64(v)
	}
	return float64(v)
}

func (h *Hooks) ShardCommitted(_ string, _ int, _, drained int64) {
	h.committed.Inc()
	if drained != 0 {
		h.drained.Add(abs(drained))
	}
}

func (h *Hooks) ShardDeferred(_ string, _ int, delta int64, _ error) {
	h.deferred.Inc()
	h.deferredDelta.Add(abs(delta))
}

func (h *Hooks) DrainFailed(string, int64, error) { h.drainFailed.Inc() }

func (h *Hooks) Rescan(_ string, shards int, _ int64) {
	h.rescans.Inc()
	h.rescanShards.Observe(float64(shards))
}

func (h *Hooks) CacheError(_, op string, _ error) { h.cacheErrors.WithLabelValues(op).Inc() }
func (h *Hooks) ProviderSetRejected(string)       { h.setRejected.Inc() }
func (h *Hooks) GenSnapshotError(string, error)   { h.genErrors.WithLabelValues("snapshot").Inc() }
func (h *Hooks) GenBumpError(string, error)       { h.genErrors.WithLabelValues("bump").Inc() }
func (h *Hooks) DeleteOutage(string, error)       { h.deleteOutages.Inc() }
