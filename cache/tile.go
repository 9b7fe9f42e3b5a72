// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides rendered map tiles and the tile cache shared by the
// tile renderer and the coverage generator.
//
// Tiles are reference counted. The producer, the cache and every coverage
// that draws a tile each hold one reference; the tile's texture goes back to
// its pool only when the last reference is released, so a texture that the
// current frame still samples is never recycled underneath it.
package cache

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/paulmach/orb/maptile"
)

// Tile is a rendered map tile.
type Tile struct {
	// Key identifies the tile in the XYZ tile scheme.
	Key maptile.Tile

	// Image holds the tile pixels. Owned by the tile until the last Release.
	Image *image.RGBA

	// Empty reports that the rasterizer found nothing to draw in the tile.
	Empty bool

	refs    atomic.Int32
	recycle func(*image.RGBA)
}

// NewTile creates a tile holding one reference owned by the caller.
// recycle, if non-nil, receives the image once the last reference is released.
func NewTile(key maptile.Tile, img *image.RGBA, empty bool, recycle func(*image.RGBA)) *Tile {
	t := &Tile{Key: key, Image: img, Empty: empty, recycle: recycle}
	t.refs.Store(1)
	return t
}

// Retain adds a reference and returns the tile for chaining.
func (t *Tile) Retain() *Tile {
	if t.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("cache: Retain on released tile %v", t.Key))
	}
	return t
}

// Release drops a reference. Releasing more often than retaining panics.
func (t *Tile) Release() {
	switch n := t.refs.Add(-1); {
	case n == 0:
		if t.recycle != nil && t.Image != nil {
			t.recycle(t.Image)
		}
		t.Image = nil
	case n < 0:
		panic(fmt.Sprintf("cache: unbalanced Release on tile %v", t.Key))
	}
}

// Refs returns the current reference count.
func (t *Tile) Refs() int32 {
	return t.refs.Load()
}
