package shardcount

import (
	"fmt"
)

// DeferError reports a shard write that failed and whose delta could not be
// parked in the delayed buffer either. Unlike a plain deferred write, the
// delta is at risk of being lost.
type DeferError struct {
	Name      string
	Delta     int64
	TxErr     error
	BufferErr error
}

func (e *DeferError) Error() string {
	return fmt.Sprintf("defer %q delta %d: shard write failed: %v; delayed buffer failed: %v",
		e.Name, e.Delta, e.TxErr, e.BufferErr)
}

func (e *DeferError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.TxErr != nil {
		errs = append(errs, e.TxErr)
	}
	if e.BufferErr != nil {
		errs = append(errs, e.BufferErr)
	}
	return errs
}

// DeleteError aggregates the parts of Delete that failed.
type DeleteError struct {
	Name      string
	PurgeErr  error
	BufferErr error
	CacheErr  error
}

func (e *DeleteError) Error() string {
	msg := fmt.Sprintf("delete %q:", e.Name)
	if e.PurgeErr != nil {
		msg += fmt.Sprintf(" purge shards: %v;", e.PurgeErr)
	}
	if e.BufferErr != nil {
		msg += fmt.Sprintf(" clear delayed buffer: %v;", e.BufferErr)
	}
	if e.CacheErr != nil {
		msg += fmt.Sprintf(" invalidate cache: %v;", e.CacheErr)
	}
	if e.PurgeErr == nil && e.BufferErr == nil && e.CacheErr == nil {
		msg += " unknown error"
	}
	return msg
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, 0, 3)
	for _, err := range []error{e.PurgeErr, e.BufferErr, e.CacheErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *DeleteError) empty() bool {
	return e.PurgeErr == nil && e.BufferErr == nil && e.CacheErr == nil
}
