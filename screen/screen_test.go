// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package screen

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

var berlin = orb.Point{13.405, 52.52}

func TestNew_Clamps(t *testing.T) {
	s := New(orb.Point{0, 89}, 42, -10, 20, 0)
	if s.Center().Lat() != MaxLatitude {
		t.Errorf("lat = %v, want %v", s.Center().Lat(), MaxLatitude)
	}
	if s.Zoom() != MaxZoom {
		t.Errorf("zoom = %v, want %v", s.Zoom(), MaxZoom)
	}
	if s.Width() != 0 || s.Height() != 20 {
		t.Errorf("size = %dx%d, want 0x20", s.Width(), s.Height())
	}
}

func TestProject_CenterMapsToMiddle(t *testing.T) {
	for _, angle := range []float64{0, math.Pi / 4, math.Pi} {
		s := New(berlin, 12, 800, 600, angle)
		x, y := s.Project(berlin)
		if math.Abs(x-400) > 1e-6 || math.Abs(y-300) > 1e-6 {
			t.Errorf("angle %v: Project(center) = (%v, %v), want (400, 300)", angle, x, y)
		}
	}
}

func TestProject_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		x, y  float64
	}{
		{"origin", 0, 0, 0},
		{"corner", 0, 800, 600},
		{"rotated", math.Pi / 6, 120, 450},
		{"upside down", math.Pi, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(berlin, 10.5, 800, 600, tt.angle)
			p := s.Unproject(tt.x, tt.y)
			x, y := s.Project(p)
			if math.Abs(x-tt.x) > 1e-6 || math.Abs(y-tt.y) > 1e-6 {
				t.Errorf("round trip = (%v, %v), want (%v, %v)", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestProject_NorthIsUp(t *testing.T) {
	s := New(berlin, 10, 800, 600, 0)
	_, y := s.Project(orb.Point{berlin.Lon(), berlin.Lat() + 0.01})
	if y >= 300 {
		t.Errorf("point north of center projected to y=%v, want < 300", y)
	}
}

func TestGlobalRect(t *testing.T) {
	s := New(berlin, 10, 800, 600, 0)
	r := s.GlobalRect()
	if !r.Contains(berlin) {
		t.Errorf("GlobalRect %v does not contain center", r)
	}

	rotated := s.WithAngle(math.Pi / 4).GlobalRect()
	if rotated.Max.Lon()-rotated.Min.Lon() <= r.Max.Lon()-r.Min.Lon() {
		t.Error("rotated view should have a wider bounding box")
	}
}

func TestIntersects(t *testing.T) {
	s := New(berlin, 10, 800, 600, 0)
	near := orb.Bound{Min: orb.Point{13.3, 52.4}, Max: orb.Point{13.5, 52.6}}
	far := orb.Bound{Min: orb.Point{-74.1, 40.6}, Max: orb.Point{-73.9, 40.8}}

	if !s.Intersects(near) {
		t.Error("expected intersection with nearby rect")
	}
	if s.Intersects(far) {
		t.Error("unexpected intersection with rect on another continent")
	}
}

func TestDrawZoom(t *testing.T) {
	tests := []struct {
		zoom     float64
		tileSize int
		want     maptile.Zoom
	}{
		{10, 256, 10},
		{10, 512, 9},
		{10, 1024, 8},
		{10.6, 256, 11},
		{0, 1024, 0},
		{19, 128, 19},
		{5, 0, 5},
	}
	for _, tt := range tests {
		s := New(berlin, tt.zoom, 800, 600, 0)
		if got := s.DrawZoom(tt.tileSize); got != tt.want {
			t.Errorf("DrawZoom(zoom=%v, tileSize=%d) = %d, want %d", tt.zoom, tt.tileSize, got, tt.want)
		}
	}
}

func TestTiles_CoverView(t *testing.T) {
	s := New(berlin, 10, 800, 600, 0)
	tiles := s.Tiles(10)
	if len(tiles) == 0 {
		t.Fatal("no tiles for a non-empty view")
	}

	center := maptile.At(berlin, 10)
	found := false
	for _, tl := range tiles {
		if tl == center {
			found = true
		}
		if tl.Z != 10 {
			t.Errorf("tile %v has zoom %d, want 10", tl, tl.Z)
		}
	}
	if !found {
		t.Errorf("tile under the center %v not in cover set", center)
	}
}

func TestTiles_Degenerate(t *testing.T) {
	if tiles := New(berlin, 10, 0, 0, 0).Tiles(10); tiles != nil {
		t.Errorf("Tiles() on empty view = %v, want nil", tiles)
	}
}

func TestTiles_WholeWorldAtZoomZero(t *testing.T) {
	s := New(orb.Point{0, 0}, 0, 1024, 1024, 0)
	tiles := s.Tiles(0)
	if len(tiles) != 1 || tiles[0] != maptile.New(0, 0, 0) {
		t.Errorf("Tiles(0) = %v, want [0/0/0]", tiles)
	}
}

func TestEqual(t *testing.T) {
	a := New(berlin, 10, 800, 600, 0)
	if !a.Equal(New(berlin, 10, 800, 600, 0)) {
		t.Error("identical screens should be equal")
	}
	if a.Equal(a.WithZoom(11)) {
		t.Error("screens at different zoom should differ")
	}
	if a.Equal(a.WithCenter(orb.Point{0, 0})) {
		t.Error("screens at different centers should differ")
	}
}
