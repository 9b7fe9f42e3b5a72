// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tilerender

import (
	"context"
	"image"
	"image/color"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/draw"
)

// Rasterizer draws the content of one tile.
//
// dst is a zeroed square texture of the renderer's tile size. RenderTile
// reports empty when it drew nothing. Implementations must be safe for
// concurrent use and should return promptly once ctx is cancelled.
type Rasterizer interface {
	RenderTile(ctx context.Context, key maptile.Tile, dst *image.RGBA) (empty bool, err error)
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, key maptile.Tile, dst *image.RGBA) (bool, error)

// RenderTile calls f.
func (f RasterizerFunc) RenderTile(ctx context.Context, key maptile.Tile, dst *image.RGBA) (bool, error) {
	return f(ctx, key, dst)
}

// SolidRasterizer fills every tile with one color.
type SolidRasterizer struct {
	Color color.Color
}

// RenderTile fills dst with r.Color.
func (r SolidRasterizer) RenderTile(_ context.Context, _ maptile.Tile, dst *image.RGBA) (bool, error) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.Color), image.Point{}, draw.Src)
	return false, nil
}

// CheckerRasterizer draws a checkerboard whose phase depends on the tile
// coordinates, so neighbouring tiles are visually distinct.
type CheckerRasterizer struct {
	// Light and Dark are the two cell colors. Nil values use defaults.
	Light, Dark color.Color

	// Cells is the number of cells along a tile edge (default 8).
	Cells int
}

// RenderTile draws the checkerboard into dst.
func (r CheckerRasterizer) RenderTile(ctx context.Context, key maptile.Tile, dst *image.RGBA) (bool, error) {
	light, dark := r.Light, r.Dark
	if light == nil {
		light = color.RGBA{0xF2, 0xEF, 0xE9, 0xFF}
	}
	if dark == nil {
		dark = color.RGBA{0xAA, 0xD3, 0xDF, 0xFF}
	}
	cells := r.Cells
	if cells <= 0 {
		cells = 8
	}

	b := dst.Bounds()
	cell := max(b.Dx()/cells, 1)
	phase := int((key.X + key.Y) & 1)
	for cy := 0; cy*cell < b.Dy(); cy++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		for cx := 0; cx*cell < b.Dx(); cx++ {
			c := light
			if (cx+cy+phase)&1 == 1 {
				c = dark
			}
			rect := image.Rect(cx*cell, cy*cell, (cx+1)*cell, (cy+1)*cell).Intersect(b)
			draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
	return false, nil
}

// EmptyRasterizer draws nothing and reports every tile as empty.
type EmptyRasterizer struct{}

// RenderTile reports an empty tile.
func (EmptyRasterizer) RenderTile(context.Context, maptile.Tile, *image.RGBA) (bool, error) {
	return true, nil
}
