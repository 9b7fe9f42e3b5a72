// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "github.com/paulmach/orb/maptile"

// tileEntry is a cached tile linked into its shard's recency ring.
type tileEntry struct {
	key        maptile.Tile
	tile       *Tile
	prev, next *tileEntry
}

// recency orders a shard's entries from most recently used (front) to least
// recently used (back). It is a ring around a sentinel entry and must be
// initialized with init. Callers hold the shard lock.
type recency struct {
	root tileEntry
	n    int
}

func (r *recency) init() {
	r.root.prev = &r.root
	r.root.next = &r.root
	r.n = 0
}

func (r *recency) len() int { return r.n }

func (r *recency) pushFront(e *tileEntry) {
	e.prev = &r.root
	e.next = r.root.next
	r.root.next.prev = e
	r.root.next = e
	r.n++
}

// touch marks e as most recently used.
func (r *recency) touch(e *tileEntry) {
	if r.root.next == e {
		return
	}
	r.remove(e)
	r.pushFront(e)
}

func (r *recency) remove(e *tileEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	r.n--
}

// back returns the least recently used entry, or nil when empty.
func (r *recency) back() *tileEntry {
	if r.n == 0 {
		return nil
	}
	return r.root.prev
}
