// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb/maptile"
)

const (
	// ShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	ShardCount = 16

	// DefaultCapacity is the default total number of cached tiles.
	DefaultCapacity = 256

	shardMask = ShardCount - 1
)

// Stats contains tile cache statistics.
type Stats struct {
	// Len is the current number of cached tiles.
	Len int
	// Capacity is the total capacity across all shards.
	Capacity int
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// Evictions is the number of tiles evicted by LRU pressure.
	Evictions uint64
}

// TileCache is a thread-safe, sharded LRU cache of rendered tiles.
//
// The cache holds one reference on every tile it stores. Get hands out an
// additional reference which the caller must Release.
type TileCache struct {
	shards        [ShardCount]*tileShard
	shardCapacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type tileShard struct {
	mu      sync.Mutex
	entries map[maptile.Tile]*tileEntry
	order   recency
}

// NewTileCache creates a cache for roughly capacity tiles.
// If capacity <= 0, DefaultCapacity is used.
func NewTileCache(capacity int) *TileCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &TileCache{shardCapacity: (capacity + ShardCount - 1) / ShardCount}
	for i := range c.shards {
		c.shards[i] = &tileShard{entries: make(map[maptile.Tile]*tileEntry)}
		c.shards[i].order.init()
	}
	return c
}

// keyHash computes an FNV-1a hash of a tile key.
func keyHash(k maptile.Tile) uint64 {
	var buf [12]byte
	for i, v := range [3]uint32{k.X, k.Y, uint32(k.Z)} {
		buf[i*4] = byte(v)
		buf[i*4+1] = byte(v >> 8)
		buf[i*4+2] = byte(v >> 16)
		buf[i*4+3] = byte(v >> 24)
	}
	h := fnv.New64a()
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

func (c *TileCache) shard(k maptile.Tile) *tileShard {
	return c.shards[keyHash(k)&shardMask]
}

// Get returns a retained tile, or false when the key is not cached.
// The caller must Release the returned tile.
func (c *TileCache) Get(k maptile.Tile) (*Tile, bool) {
	s := c.shard(k)
	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	s.order.touch(e)
	t := e.tile.Retain()
	s.mu.Unlock()

	c.hits.Add(1)
	return t, true
}

// Contains reports whether the key is cached without touching LRU order.
func (c *TileCache) Contains(k maptile.Tile) bool {
	s := c.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[k]
	return ok
}

// Add stores a tile, retaining it. A tile already cached under the same key
// is replaced and released. Least recently used tiles are evicted when the
// shard is full.
func (c *TileCache) Add(t *Tile) {
	s := c.shard(t.Key)
	var dropped []*Tile

	s.mu.Lock()
	if e, ok := s.entries[t.Key]; ok {
		if e.tile != t {
			dropped = append(dropped, e.tile)
			e.tile = t.Retain()
		}
		s.order.touch(e)
		s.mu.Unlock()
		releaseAll(dropped)
		return
	}

	for s.order.len() >= c.shardCapacity {
		oldest := s.order.back()
		if oldest == nil {
			break
		}
		s.order.remove(oldest)
		delete(s.entries, oldest.key)
		dropped = append(dropped, oldest.tile)
		c.evictions.Add(1)
	}
	e := &tileEntry{key: t.Key, tile: t.Retain()}
	s.order.pushFront(e)
	s.entries[t.Key] = e
	s.mu.Unlock()

	releaseAll(dropped)
}

// Remove evicts a tile. Returns true if it was cached.
func (c *TileCache) Remove(k maptile.Tile) bool {
	s := c.shard(k)
	s.mu.Lock()
	e, ok := s.entries[k]
	if ok {
		s.order.remove(e)
		delete(s.entries, k)
	}
	s.mu.Unlock()

	if ok {
		e.tile.Release()
	}
	return ok
}

// RemoveIf evicts every tile whose key satisfies pred and returns the count.
func (c *TileCache) RemoveIf(pred func(maptile.Tile) bool) int {
	var dropped []*Tile
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if pred(k) {
				s.order.remove(e)
				delete(s.entries, k)
				dropped = append(dropped, e.tile)
			}
		}
		s.mu.Unlock()
	}
	releaseAll(dropped)
	return len(dropped)
}

// Clear evicts every tile.
func (c *TileCache) Clear() {
	c.RemoveIf(func(maptile.Tile) bool { return true })
}

// Len returns the number of cached tiles.
func (c *TileCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Capacity returns the total capacity across all shards.
func (c *TileCache) Capacity() int {
	return c.shardCapacity * ShardCount
}

// Stats returns current cache statistics.
func (c *TileCache) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.Capacity(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func releaseAll(tiles []*Tile) {
	for _, t := range tiles {
		t.Release()
	}
}
