// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package coverage builds and guards the set of tiles drawn for the current
// view.
//
// A [Generator] owns the current [Coverage] and rebuilds it from cover
// tasks on a single goroutine. Readers take a [Lease] from the [Guard] for the
// duration of a frame.
package coverage

import (
	"cmp"
	"image"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/cache"
	"github.com/gogpu/tilemap/screen"
)

// Model answers questions about the map data under a point.
type Model interface {
	// HasDataAt reports whether any map data is available at p.
	HasDataAt(p orb.Point) bool

	// RegionNameAt returns the name of the administrative region at p.
	RegionNameAt(p orb.Point) string
}

// Coverage is the set of tiles needed to draw one view, plus derived
// metadata. A Coverage is only read under its generator's guard.
type Coverage struct {
	screen    screen.Screen
	hasScreen bool
	zoom      maptile.Zoom
	required  []maptile.Tile
	tiles     map[maptile.Tile]*cache.Tile

	emptyModel bool
	regionName string
}

// newEmpty returns the coverage in place before the first cover task.
func newEmpty() *Coverage {
	return &Coverage{tiles: make(map[maptile.Tile]*cache.Tile)}
}

// Screen returns the view the coverage was built for.
func (c *Coverage) Screen() (screen.Screen, bool) {
	return c.screen, c.hasScreen
}

// DrawScale returns the tile zoom of the coverage.
func (c *Coverage) DrawScale() int {
	return int(c.zoom)
}

// Tiles returns the keys of the available tiles in row-major order.
func (c *Coverage) Tiles() []maptile.Tile {
	keys := make([]maptile.Tile, 0, len(c.tiles))
	for _, k := range c.required {
		if _, ok := c.tiles[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Missing returns the keys of required tiles that are not available yet.
func (c *Coverage) Missing() []maptile.Tile {
	var keys []maptile.Tile
	for _, k := range c.required {
		if _, ok := c.tiles[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsEmptyDrawing reports whether no available tile has any content.
func (c *Coverage) IsEmptyDrawing() bool {
	for _, t := range c.tiles {
		if !t.Empty {
			return false
		}
	}
	return true
}

// IsPartial reports whether some required tiles are still missing.
func (c *Coverage) IsPartial() bool {
	return len(c.tiles) < len(c.required)
}

// IsEmptyModelAtCenter reports whether the model has no data at the view center.
func (c *Coverage) IsEmptyModelAtCenter() bool {
	return c.emptyModel
}

// RegionNameAtCenter returns the region name at the view center, or "" when
// the model has data there.
func (c *Coverage) RegionNameAtCenter() string {
	return c.regionName
}

// needs reports whether k is required and not yet available.
func (c *Coverage) needs(k maptile.Tile) bool {
	if _, ok := c.tiles[k]; ok {
		return false
	}
	_, found := slices.BinarySearchFunc(c.required, k, compareTiles)
	return found
}

// Draw renders the available tiles onto dst.
//
// Tiles are mapped through an affine transform from tile pixels to view
// pixels, so they follow the view s even when it differs from the view the
// coverage was built for (a pan or zoom in progress).
func (c *Coverage) Draw(dst draw.Image, s screen.Screen) {
	sin, cos := math.Sincos(s.Angle())
	for _, k := range c.required {
		t, ok := c.tiles[k]
		if !ok || t.Empty || t.Image == nil {
			continue
		}
		b := k.Bound()
		px, py := s.Project(orb.Point{b.Min.Lon(), b.Max.Lat()})
		edge := screen.BaseTileSize * math.Exp2(s.Zoom()-float64(k.Z))
		scale := edge / float64(t.Image.Bounds().Dx())

		if s.Angle() == 0 && math.Abs(scale-1) < 1e-9 {
			at := image.Pt(int(math.Round(px)), int(math.Round(py)))
			draw.Draw(dst, t.Image.Bounds().Add(at), t.Image, image.Point{}, draw.Over)
			continue
		}
		aff := f64.Aff3{
			scale * cos, -scale * sin, px,
			scale * sin, scale * cos, py,
		}
		draw.ApproxBiLinear.Transform(dst, aff, t.Image, t.Image.Bounds(), draw.Over, nil)
	}
}

// release drops the coverage's tile references.
func (c *Coverage) release() {
	for k, t := range c.tiles {
		t.Release()
		delete(c.tiles, k)
	}
}

func compareTiles(a, b maptile.Tile) int {
	return cmp.Or(
		cmp.Compare(a.Z, b.Z),
		cmp.Compare(a.Y, b.Y),
		cmp.Compare(a.X, b.X),
	)
}
