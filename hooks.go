package shardcount

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The counter calls them on hot paths.
type Hooks interface {
	// A shard transaction committed delta plus drained (the delayed delta folded in).
	ShardCommitted(name string, index int, delta, drained int64)

	// A shard transaction failed transiently; delta went to the delayed buffer.
	ShardDeferred(name string, index int, delta int64, err error)

	// A committed shard already includes amount but the delayed buffer could
	// not be reduced by it. The count is over-reported by amount until repaired.
	DrainFailed(name string, amount int64, err error)

	// A full rescan summed shards shards (plus the delayed delta) to total.
	Rescan(name string, shards int, total int64)

	// A cache operation failed; op ∈ {"get", "set", "adjust", "del"}.
	CacheError(storageKey, op string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors (snapshot or bump).
	GenSnapshotError(name string, err error)
	GenBumpError(name string, err error)

	// Delete left something behind (shards, buffer or cache entry).
	DeleteOutage(name string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ShardCommitted(string, int, int64, int64) {}
func (NopHooks) ShardDeferred(string, int, int64, error)  {}
func (NopHooks) DrainFailed(string, int64, error)         {}
func (NopHooks) Rescan(string, int, int64)                {}
func (NopHooks) CacheError(string, string, error)         {}
func (NopHooks) ProviderSetRejected(string)               {}
func (NopHooks) GenSnapshotError(string, error)           {}
func (NopHooks) GenBumpError(string, error)               {}
func (NopHooks) DeleteOutage(string, error)               {}

// MultiHooks fans every event out to each member in order.
type MultiHooks []Hooks

func (m MultiHooks) ShardCommitted(name string, index int, delta, drained int64) {
	for _, h := range m {
		h.ShardCommitted(name, index, delta, drained)
	}
}

func (m MultiHooks) ShardDeferred(name string, index int, delta int64, err error) {
	for _, h := range m {
		h.ShardDeferred(name, index, delta, err)
	}
}

func (m MultiHooks) DrainFailed(name string, amount int64, err error) {
	for _, h := range m {
		h.DrainFailed(name, amount, err)
	}
}

func (m MultiHooks) Rescan(name string, shards int, total int64) {
	for _, h := range m {
		h.Rescan(name, shards, total)
	}
}

func (m MultiHooks) CacheError(storageKey, op string, err error) {
	for _, h := range m {
		h.CacheError(storageKey, op, err)
	}
}

func (m MultiHooks) ProviderSetRejected(storageKey string) {
	for _, h := range m {
		h.ProviderSetRejected(storageKey)
	}
}

func (m MultiHooks) GenSnapshotError(name string, err error) {
	for _, h := range m {
		h.GenSnapshotError(name, err)
	}
}

func (m MultiHooks) GenBumpError(name string, err error) {
	for _, h := range m {
		h.GenBumpError(name, err)
	}
}

func (m MultiHooks) DeleteOutage(name string, err error) {
	for _, h := range m {
		h.DeleteOutage(name, err)
	}
}
