// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package screen provides the per-frame view snapshot used by the tiling
// render policy.
//
// A Screen is an immutable value: the host builds a new one for every frame
// from its gesture state and hands it to the policy. Geographic coordinates
// are WGS84 longitude/latitude ([orb.Point]); pixel coordinates have their
// origin at the top-left corner of the view, X increasing right and Y down.
package screen

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

// Scale constants shared by the coverage generator and the policy.
const (
	// UpperWorldScale is the most detailed zoom level served by the
	// world overview data. Tiles above it are drawn from regional data.
	UpperWorldScale = 9

	// MaxZoom is the most detailed tile zoom level the renderer requests.
	MaxZoom = 19

	// BaseTileSize is the edge length, in pixels, of a zoom-0 world at Zoom 0.
	BaseTileSize = 256

	// MaxLatitude is the latitude limit of the web mercator projection.
	MaxLatitude = 85.05112877980659

	earthCircumference = 2 * math.Pi * 6378137.0

	// tileLatitude keeps tile lookups strictly inside the projection so
	// edge rows never round outside the tile grid.
	tileLatitude = 85.0511
)

// Screen is an immutable view-transform snapshot.
type Screen struct {
	center orb.Point
	zoom   float64
	width  int
	height int
	angle  float64
}

// New creates a screen centered on the given lon/lat point.
//
// Zoom is fractional: at zoom z the whole world spans BaseTileSize*2^z
// pixels. Latitude is clamped to the mercator limits, zoom to [0, MaxZoom]
// and negative dimensions to zero. Angle is the view rotation in radians.
func New(center orb.Point, zoom float64, width, height int, angle float64) Screen {
	return Screen{
		center: orb.Point{center.Lon(), clamp(center.Lat(), -MaxLatitude, MaxLatitude)},
		zoom:   clamp(zoom, 0, MaxZoom),
		width:  max(width, 0),
		height: max(height, 0),
		angle:  angle,
	}
}

// Center returns the view center in lon/lat.
func (s Screen) Center() orb.Point { return s.center }

// Zoom returns the fractional zoom level.
func (s Screen) Zoom() float64 { return s.zoom }

// Width returns the view width in pixels.
func (s Screen) Width() int { return s.width }

// Height returns the view height in pixels.
func (s Screen) Height() int { return s.height }

// Angle returns the view rotation in radians.
func (s Screen) Angle() float64 { return s.angle }

// PixelRect returns the view rectangle in pixel space.
func (s Screen) PixelRect() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// WithCenter returns a copy of s moved to a new center.
func (s Screen) WithCenter(c orb.Point) Screen {
	return New(c, s.zoom, s.width, s.height, s.angle)
}

// WithZoom returns a copy of s at a new zoom level.
func (s Screen) WithZoom(z float64) Screen {
	return New(s.center, z, s.width, s.height, s.angle)
}

// WithAngle returns a copy of s rotated to a new angle.
func (s Screen) WithAngle(a float64) Screen {
	return New(s.center, s.zoom, s.width, s.height, a)
}

// Equal reports whether two screens describe the same view.
func (s Screen) Equal(o Screen) bool {
	return s == o
}

// MetersPerPixel returns the mercator meters covered by one pixel.
func (s Screen) MetersPerPixel() float64 {
	return earthCircumference / (BaseTileSize * math.Exp2(s.zoom))
}

// Project converts a lon/lat point to pixel coordinates.
func (s Screen) Project(p orb.Point) (x, y float64) {
	m := project.WGS84.ToMercator(orb.Point{p.Lon(), clamp(p.Lat(), -MaxLatitude, MaxLatitude)})
	c := project.WGS84.ToMercator(s.center)
	mpp := s.MetersPerPixel()

	dx := (m.X() - c.X()) / mpp
	dy := -(m.Y() - c.Y()) / mpp

	sin, cos := math.Sincos(s.angle)
	return float64(s.width)/2 + dx*cos - dy*sin, float64(s.height)/2 + dx*sin + dy*cos
}

// Unproject converts pixel coordinates back to lon/lat.
func (s Screen) Unproject(x, y float64) orb.Point {
	dx0 := x - float64(s.width)/2
	dy0 := y - float64(s.height)/2

	sin, cos := math.Sincos(s.angle)
	dx := dx0*cos + dy0*sin
	dy := -dx0*sin + dy0*cos

	c := project.WGS84.ToMercator(s.center)
	mpp := s.MetersPerPixel()
	p := project.Mercator.ToWGS84(orb.Point{c.X() + dx*mpp, c.Y() - dy*mpp})
	return orb.Point{p.Lon(), clamp(p.Lat(), -MaxLatitude, MaxLatitude)}
}

// GlobalRect returns the lon/lat bounding box of the (possibly rotated) view.
func (s Screen) GlobalRect() orb.Bound {
	w, h := float64(s.width), float64(s.height)
	b := orb.Bound{Min: s.Unproject(0, 0), Max: s.Unproject(0, 0)}
	b = b.Extend(s.Unproject(w, 0))
	b = b.Extend(s.Unproject(0, h))
	b = b.Extend(s.Unproject(w, h))
	return b
}

// Intersects reports whether the view overlaps the given lon/lat rectangle.
func (s Screen) Intersects(b orb.Bound) bool {
	return s.GlobalRect().Intersects(b)
}

// DrawZoom returns the tile zoom whose tiles appear closest to tileSize
// pixels wide on this screen.
func (s Screen) DrawZoom(tileSize int) maptile.Zoom {
	if tileSize <= 0 {
		tileSize = BaseTileSize
	}
	z := math.Round(s.zoom - math.Log2(float64(tileSize)/BaseTileSize))
	return maptile.Zoom(clamp(z, 0, MaxZoom))
}

// Tiles returns the tiles at zoom z that cover the view, in row-major order.
func (s Screen) Tiles(z maptile.Zoom) []maptile.Tile {
	if s.width == 0 || s.height == 0 {
		return nil
	}
	b := s.GlobalRect()
	minT := maptile.At(orb.Point{clamp(b.Min.Lon(), -180, 180), clamp(b.Max.Lat(), -tileLatitude, tileLatitude)}, z)
	maxT := maptile.At(orb.Point{clamp(b.Max.Lon(), -180, 180), clamp(b.Min.Lat(), -tileLatitude, tileLatitude)}, z)

	limit := uint32(1)<<uint32(z) - 1
	minT.X, minT.Y = min(minT.X, limit), min(minT.Y, limit)
	maxT.X, maxT.Y = min(maxT.X, limit), min(maxT.Y, limit)

	tiles := make([]maptile.Tile, 0, int(maxT.X-minT.X+1)*int(maxT.Y-minT.Y+1))
	for y := minT.Y; y <= maxT.Y; y++ {
		for x := minT.X; x <= maxT.X; x++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}
	return tiles
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
