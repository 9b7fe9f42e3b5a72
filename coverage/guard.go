// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package coverage

import (
	"sync"
	"time"

	"github.com/gogpu/tilemap/internal/metrics"
)

// Guard serializes access to the current coverage.
//
// Readers hold a [Lease] for as long as they use the coverage; the generator
// takes the same lock to swap or update it, so a frame that holds a lease
// sees one consistent coverage from acquisition to release.
type Guard struct {
	mu  sync.Mutex
	cur *Coverage
}

func newGuard(c *Coverage) *Guard {
	return &Guard{cur: c}
}

// Lease is exclusive read access to the current coverage.
// Every Lease must be released exactly once.
type Lease struct {
	g        *Guard
	cov      *Coverage
	acquired time.Time
	released bool
}

// Acquire blocks until the coverage is available and returns a lease on it.
func (g *Guard) Acquire() *Lease {
	g.mu.Lock()
	return &Lease{g: g, cov: g.cur, acquired: time.Now()}
}

// Coverage returns the leased coverage. It panics after Release.
func (l *Lease) Coverage() *Coverage {
	if l.released {
		panic("coverage: Coverage called on released lease")
	}
	return l.cov
}

// Release ends the lease. Releasing twice panics.
func (l *Lease) Release() {
	if l.released {
		panic("coverage: lease released twice")
	}
	l.released = true
	l.cov = nil
	metrics.RecordLease(time.Since(l.acquired))
	l.g.mu.Unlock()
}

// With runs fn with the current coverage and releases the lease afterwards,
// including when fn panics.
func (g *Guard) With(fn func(c *Coverage)) {
	l := g.Acquire()
	defer l.Release()
	fn(l.Coverage())
}

// swap installs next and returns the coverage it replaced.
func (g *Guard) swap(next *Coverage) *Coverage {
	g.mu.Lock()
	prev := g.cur
	g.cur = next
	g.mu.Unlock()
	metrics.RecordCoverageSwap()
	return prev
}

// update runs fn on the current coverage under the lock.
func (g *Guard) update(fn func(c *Coverage)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.cur)
}
