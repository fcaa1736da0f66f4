package util

import "strconv"

// ShardName is the store identity of a counter's shards: the namespace is
// part of it, so equal names in different namespaces never share records.
func ShardName(ns, name string) string { return ns + ":" + name }

// ShardKey is the store key of one shard record. It depends only on
// (shardName, index) so concurrent creators converge on the same record.
// The name is a Redis Cluster hash tag, keeping every shard of a counter in
// one slot for multi-key MGET and DEL.
func ShardKey(shardName string, index int) string {
	return "shard:{" + shardName + "}:" + strconv.Itoa(index)
}

// CountKey is the cache key holding the cached total of a counter.
func CountKey(ns, name string) string { return "count:" + ns + ":" + name }

// DelayedKey is the cache key holding the delayed (not yet persisted) delta.
func DelayedKey(ns, name string) string { return "delayed:" + ns + ":" + name }

// GenKey is the generation key guarding cache repopulation for a counter.
func GenKey(ns, name string) string { return ns + ":" + name }
