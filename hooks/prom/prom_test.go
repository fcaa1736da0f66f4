package prom

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestHooksExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h.ShardDeferred("hits", 1, -3, errors.New("busy"))
	h.ShardDeferred("hits", 2, 2, errors.New("busy"))
	h.ShardCommitted("hits", 3, 1, -1)
	h.Rescan("hits", 5, 10)
	h.CacheError("k", "set", errors.New("oom"))
	h.GenBumpError("hits", errors.New("down"))

	got := gather(t, reg)
	want := map[string]float64{
		"shardcount_shard_deferrals_total":      2,
		"shardcount_deferred_delta_abs_total":   5,
		"shardcount_shard_commits_total":        1,
		"shardcount_drained_delta_abs_total":    1,
		"shardcount_rescans_total":              1,
		"shardcount_rescan_shards":              1,
		"shardcount_cache_errors_total{op=set}": 1,
		"shardcount_gen_errors_total{op=bump}":  1,
		"shardcount_delete_outages_total":       0,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: want %v, got %v", k, v, got[k])
		}
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg, "x"); err == nil {
		t.Fatal("expected AlreadyRegisteredError")
	}
}
