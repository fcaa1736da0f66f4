// Package store defines the transactional record store holding counter shards.
//
// A store addresses records by key and offers an atomic read-modify-write on
// exactly one key. There is no cross-key atomicity. Transactions may fail
// transiently (contention, timeouts); such failures wrap ErrTransactionFailed.
package store

import (
	"context"
	"errors"
)

// ErrTransactionFailed marks a transient, retryable transaction failure.
var ErrTransactionFailed = errors.New("store: transaction failed")

// Shard is one persisted sub-counter of a named counter.
type Shard struct {
	Name  string `json:"name" cbor:"1,keyasint" msgpack:"name"`
	Index int    `json:"index" cbor:"2,keyasint" msgpack:"index"`
	Count int64  `json:"count" cbor:"3,keyasint" msgpack:"count"`
}

// TxFunc mutates the shard loaded for a transaction. A missing record is
// passed as the zero Shard. Returning nil commits the shard as left by fn;
// returning an error aborts and the error is returned unchanged.
type TxFunc func(s *Shard) error

type Store interface {
	// RunInTransaction runs fn with exclusive atomic access to the record at key.
	RunInTransaction(ctx context.Context, key string, fn TxFunc) error

	// Get returns (shard, true, nil) on hit; (Shard{}, false, nil) on miss.
	Get(ctx context.Context, key string) (Shard, bool, error)

	// Delete removes records; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// QueryByName returns up to limit shards whose Name equals name.
	QueryByName(ctx context.Context, name string, limit int) ([]Shard, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// IsTransient reports whether err is a failure the caller may defer and
// retry later rather than treat as fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransactionFailed) || errors.Is(err, context.DeadlineExceeded)
}
