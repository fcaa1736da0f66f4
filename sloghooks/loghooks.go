// Package sloghooks reports counter events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/shardcount"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CommitEvery   uint64
	DeferredEvery uint64
	RescanEvery   uint64
	// Optional key redactor for cache keys. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	commitCtr   atomic.Uint64
	deferredCtr atomic.Uint64
	rescanCtr   atomic.Uint64
}

var _ shardcount.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ShardCommitted(name string, index int, delta, drained int64) {
	if h.l == nil || !sample(h.opts.CommitEvery, &h.commitCtr) {
		return
	}
	h.l.Debug("shardcount.shard_committed",
		"name", name,
		"index", index,
		"delta", delta,
		"drained", drained)
}

func (h *Hooks) ShardDeferred(name string, index int, delta int64, err error) {
	if h.l == nil || !sample(h.opts.DeferredEvery, &h.deferredCtr) {
		return
	}
	h.l.Info("shardcount.shard_deferred",
		"name", name,
		"index", index,
		"delta", delta,
		"err", err)
}

func (h *Hooks) DrainFailed(name string, amount int64, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("shardcount.drain_failed",
		"name", name,
		"over_reported_by", amount,
		"err", err)
}

func (h *Hooks) Rescan(name string, shards int, total int64) {
	if h.l == nil || !sample(h.opts.RescanEvery, &h.rescanCtr) {
		return
	}
	h.l.Debug("shardcount.rescan",
		"name", name,
		"shards", shards,
		"total", total)
}

func (h *Hooks) CacheError(storageKey, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("shardcount.cache_error",
		"key", h.redact(storageKey),
		"op", op,
		"err", err)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("shardcount.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("shardcount.gen_snapshot_error",
		"name", name,
		"err", err)
}

func (h *Hooks) GenBumpError(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("shardcount.gen_bump_error",
		"name", name,
		"err", err)
}

func (h *Hooks) DeleteOutage(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("shardcount.delete_outage",
		"name", name,
		"err", err)
}
