package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSamplingAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{DeferredEvery: 3})

	for i := 0; i < 9; i++ {
		h.ShardDeferred("hits", 2, 1, errors.New("busy"))
	}
	if n := strings.Count(buf.String(), "shardcount.shard_deferred"); n != 3 {
		t.Fatalf("want 3 sampled lines, got %d:\n%s", n, buf.String())
	}

	buf.Reset()
	h.CacheError("count:default:hits", "set", errors.New("oom"))
	out := buf.String()
	if strings.Contains(out, "count:default:hits") {
		t.Fatalf("cache key leaked: %s", out)
	}
	if !strings.Contains(out, "op=set") {
		t.Fatalf("missing op: %s", out)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.DrainFailed("hits", 3, errors.New("x"))
	h.DeleteOutage("hits", errors.New("x"))
	h.Rescan("hits", 5, 10)
}
