// Package stripe provides a fixed table of mutexes addressed by key hash.
// In-process providers use it to make read-modify-write on one key atomic
// without a global lock.
package stripe

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultStripes = 256

type Locks struct {
	mu   []sync.Mutex
	mask uint64
}

// New returns a lock table with n stripes rounded up to a power of two.
// n <= 0 selects the default of 256.
func New(n int) *Locks {
	if n <= 0 {
		n = defaultStripes
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return &Locks{mu: make([]sync.Mutex, size), mask: uint64(size - 1)}
}

func (l *Locks) For(key string) *sync.Mutex {
	return &l.mu[xxhash.Sum64String(key)&l.mask]
}

// Len reports the number of stripes.
func (l *Locks) Len() int { return len(l.mu) }
