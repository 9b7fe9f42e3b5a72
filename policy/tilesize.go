// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import "math/bits"

// Tile size bounds in pixels.
const (
	MinTileSize = 128
	MaxTileSize = 1024
)

// TileSize returns the tile edge length for a screen of the given size.
//
// The larger screen dimension is rounded to a power of two: always up below
// 1024 pixels, to the nearer power of two from there on. Rounding up needs
// the upper power to be strictly nearer, so exact ties round down. The tile edge is half of that, clamped to [MinTileSize,
// MaxTileSize]. Degenerate sizes yield MinTileSize.
func TileSize(width, height int) int {
	maxDim := max(width, height, 0)

	ceiled := 1 << bits.Len(uint(maxDim))
	floored := ceiled / 2

	chosen := ceiled
	if maxDim >= 1024 && ceiled-maxDim >= maxDim-floored {
		chosen = floored
	}
	return min(max(chosen/2, MinTileSize), MaxTileSize)
}
