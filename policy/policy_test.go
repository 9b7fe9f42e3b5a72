// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/gogpu/tilemap/cache"
	"github.com/gogpu/tilemap/coverage"
	"github.com/gogpu/tilemap/queued"
	"github.com/gogpu/tilemap/render"
	"github.com/gogpu/tilemap/screen"
	"github.com/gogpu/tilemap/tilerender"
)

// =============================================================================
// Test doubles
// =============================================================================

// idleTileRenderer accepts tile requests and never produces anything.
type idleTileRenderer struct{}

func (idleTileRenderer) Render(maptile.Tile, tilerender.Publisher) (bool, error) { return true, nil }
func (idleTileRenderer) TileSize() int                                          { return screen.BaseTileSize }

type coverCall struct {
	Zoom     float64
	Recreate bool
}

type invalidateCall struct {
	Rect     orb.Bound
	MinScale int
}

// recordingGenerator is a real generator that records the commands the
// policy sends it.
type recordingGenerator struct {
	*coverage.Generator

	mu            sync.Mutex
	covers        []coverCall
	invalidations []invalidateCall
}

func (g *recordingGenerator) AddCoverScreenTask(s screen.Screen, recreate bool) {
	g.mu.Lock()
	g.covers = append(g.covers, coverCall{Zoom: s.Zoom(), Recreate: recreate})
	g.mu.Unlock()
	g.Generator.AddCoverScreenTask(s, recreate)
}

func (g *recordingGenerator) InvalidateTiles(rect orb.Bound, minScale int) {
	g.mu.Lock()
	g.invalidations = append(g.invalidations, invalidateCall{Rect: rect, MinScale: minScale})
	g.mu.Unlock()
	g.Generator.InvalidateTiles(rect, minScale)
}

// takeCovers returns and clears the recorded cover tasks.
func (g *recordingGenerator) takeCovers() []coverCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.covers
	g.covers = nil
	return c
}

func (g *recordingGenerator) takeInvalidations() []invalidateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.invalidations
	g.invalidations = nil
	return c
}

type fakeTiles struct {
	paused  bool
	pauses  int
	resumes int
	cancels int
}

func (f *fakeTiles) SetPaused(p bool) {
	f.paused = p
	if p {
		f.pauses++
	} else {
		f.resumes++
	}
}

func (f *fakeTiles) CancelCommands() int {
	f.cancels++
	return 0
}

type hookRecorder struct {
	calls []string
}

func (h *hookRecorder) StopDrag()                         { h.calls = append(h.calls, "drag") }
func (h *hookRecorder) StopScale()                        { h.calls = append(h.calls, "scale") }
func (h *hookRecorder) StopRotate(float64, time.Duration) { h.calls = append(h.calls, "rotate") }

type countingPool struct{ updates int }

func (c *countingPool) UpdatePoolState() { c.updates++ }

func newTestPolicy(t *testing.T, opts ...Option) (*TilingPolicy, *recordingGenerator, *fakeTiles) {
	t.Helper()
	g := coverage.New(idleTileRenderer{}, cache.NewTileCache(64))
	if err := g.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(g.Close)

	gen := &recordingGenerator{Generator: g}
	tiles := &fakeTiles{}
	opts = append([]Option{WithScreenSize(800, 600)}, opts...)
	return New(gen, tiles, opts...), gen, tiles
}

func parisScreen() screen.Screen {
	return screen.New(orb.Point{2.35, 48.85}, 12, 800, 600, 0)
}

func drawFrame(p *TilingPolicy, surf render.Surface, s screen.Screen) {
	p.BeginFrame(s)
	p.DrawFrame(surf, s)
	p.EndFrame(s)
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

// =============================================================================
// Frame lifecycle
// =============================================================================

func TestTilingPolicy_FirstFrameCoversScreen(t *testing.T) {
	p, gen, _ := newTestPolicy(t)
	surf := render.NewPixmapSurface(800, 600)

	drawFrame(p, surf, parisScreen())

	want := []coverCall{{Zoom: 12, Recreate: false}}
	if diff := cmp.Diff(want, gen.takeCovers()); diff != "" {
		t.Errorf("cover tasks mismatch (-want +got):\n%s", diff)
	}
	if surf.Frames() != 1 {
		t.Errorf("surface frames = %d, want 1", surf.Frames())
	}
	if surf.InFrame() {
		t.Error("surface frame left open")
	}
}

func TestTilingPolicy_ClearsToBackground(t *testing.T) {
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	p, _, _ := newTestPolicy(t, WithBackground(bg))
	surf := render.NewPixmapSurface(800, 600)

	drawFrame(p, surf, parisScreen())

	if got := surf.Snapshot().RGBAAt(400, 300); got != bg {
		t.Errorf("pixel = %v, want background %v", got, bg)
	}
}

func TestTilingPolicy_PhaseOrder(t *testing.T) {
	s := parisScreen()
	surf := render.NewPixmapSurface(800, 600)

	tests := []struct {
		name string
		run  func(p *TilingPolicy)
	}{
		{"draw without begin", func(p *TilingPolicy) { p.DrawFrame(surf, s) }},
		{"end without draw", func(p *TilingPolicy) { p.BeginFrame(s); p.EndFrame(s) }},
		{"end without begin", func(p *TilingPolicy) { p.EndFrame(s) }},
		{"begin twice", func(p *TilingPolicy) { p.BeginFrame(s); p.BeginFrame(s) }},
		{"draw twice", func(p *TilingPolicy) {
			p.BeginFrame(s)
			p.DrawFrame(surf, s)
			defer p.EndFrame(s)
			p.DrawFrame(surf, s)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestPolicy(t)
			assertPanics(t, tt.name, func() { tt.run(p) })
		})
	}
}

// probeSurface checks, while the surface frame is being submitted, whether
// another goroutine can take the coverage lease.
type probeSurface struct {
	*render.PixmapSurface
	guard            *coverage.Guard
	acquiredInSubmit bool
}

func (s *probeSurface) EndFrame() {
	got := make(chan struct{})
	go func() {
		s.guard.Acquire().Release()
		close(got)
	}()
	select {
	case <-got:
		s.acquiredInSubmit = true
	case <-time.After(30 * time.Millisecond):
	}
	s.PixmapSurface.EndFrame()
}

func TestTilingPolicy_LeaseSpansDrawToEnd(t *testing.T) {
	p, gen, _ := newTestPolicy(t)
	surf := &probeSurface{PixmapSurface: render.NewPixmapSurface(800, 600), guard: gen.Guard()}
	s := parisScreen()

	p.BeginFrame(s)
	p.DrawFrame(surf, s)
	if surf.acquiredInSubmit {
		t.Fatal("coverage lease was free while the surface frame was submitted")
	}

	gen.AddCoverScreenTask(s.WithZoom(13), true)
	f := gen.InsertFence()
	swapped := make(chan struct{})
	go func() {
		gen.JoinFence(f)
		close(swapped)
	}()
	select {
	case <-swapped:
		t.Fatal("coverage swap completed between DrawFrame and EndFrame")
	case <-time.After(50 * time.Millisecond):
	}

	p.EndFrame(s)
	select {
	case <-swapped:
	case <-time.After(time.Second):
		t.Fatal("coverage swap did not complete after EndFrame")
	}
}

// panicSurface panics when the frame is submitted.
type panicSurface struct {
	*render.PixmapSurface
}

func (panicSurface) EndFrame() { panic("device lost") }

func TestTilingPolicy_PanicInDrawReleasesLease(t *testing.T) {
	q := queued.New(1)
	p, gen, _ := newTestPolicy(t, WithQueuedRenderer(q))
	s := parisScreen()

	p.BeginFrame(s)
	assertPanics(t, "DrawFrame", func() {
		p.DrawFrame(panicSurface{render.NewPixmapSurface(8, 8)}, s)
	})

	acquired := make(chan struct{})
	go func() {
		gen.Guard().Acquire().Release()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("coverage lease leaked by panicking DrawFrame")
	}
	if q.InFrame() {
		t.Error("queued frame session left open")
	}

	drawFrame(p, render.NewPixmapSurface(800, 600), s)
}

func TestTilingPolicy_QueuedRenderer(t *testing.T) {
	q := queued.New(2)
	pool := &countingPool{}
	p, _, _ := newTestPolicy(t, WithQueuedRenderer(q), WithResourceManager(pool))
	surf := render.NewPixmapSurface(800, 600)
	s := parisScreen()

	ran := 0
	q.Post(-1, queued.Packet{Run: func() { ran++ }})
	if !p.NeedsRedraw() {
		t.Error("NeedsRedraw = false with pending packets")
	}

	p.BeginFrame(s)
	if !q.InFrame() {
		t.Error("BeginFrame did not open the queued frame")
	}
	p.DrawFrame(surf, s)
	if ran != 1 || pool.updates != 1 {
		t.Errorf("after DrawFrame: packets run = %d, pool updates = %d, want 1 and 1", ran, pool.updates)
	}
	p.EndFrame(s)
	if q.InFrame() {
		t.Error("EndFrame did not close the queued frame")
	}
	if p.NeedsRedraw() {
		t.Error("NeedsRedraw = true with nothing pending")
	}
}

func TestTilingPolicy_ResourceManagerNeedsQueuedRenderer(t *testing.T) {
	pool := &countingPool{}
	p, _, _ := newTestPolicy(t, WithResourceManager(pool))
	drawFrame(p, render.NewPixmapSurface(800, 600), parisScreen())
	if pool.updates != 0 {
		t.Errorf("pool updated %d times without a queued renderer", pool.updates)
	}
}

// =============================================================================
// Forced updates
// =============================================================================

func TestTilingPolicy_ForceUpdate(t *testing.T) {
	inView := orb.Bound{Min: orb.Point{2.34, 48.84}, Max: orb.Point{2.36, 48.86}}
	elsewhere := orb.Bound{Min: orb.Point{-74.1, 40.6}, Max: orb.Point{-73.9, 40.8}}

	tests := []struct {
		name             string
		rect             *orb.Bound
		force            bool
		wantInvalidation bool
		wantRecreate     bool
	}{
		{"intersecting rect", &inView, true, true, true},
		{"distant rect", &elsewhere, true, true, false},
		{"no rect", nil, true, false, false},
		{"rect without force", &inView, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, gen, _ := newTestPolicy(t)
			surf := render.NewPixmapSurface(800, 600)
			if tt.rect != nil {
				p.Base().SetInvalidRect(*tt.rect)
			}
			p.Base().SetForceUpdate(tt.force)

			drawFrame(p, surf, parisScreen())

			inv := gen.takeInvalidations()
			if got := len(inv) == 1; got != tt.wantInvalidation {
				t.Fatalf("invalidations = %v, want one: %v", inv, tt.wantInvalidation)
			}
			if tt.wantInvalidation && inv[0].MinScale != screen.UpperWorldScale+1 {
				t.Errorf("MinScale = %d, want %d", inv[0].MinScale, screen.UpperWorldScale+1)
			}
			covers := gen.takeCovers()
			if len(covers) != 1 || covers[0].Recreate != tt.wantRecreate {
				t.Errorf("covers = %v, want one with recreate=%v", covers, tt.wantRecreate)
			}
			if p.Base().DoForceUpdate() {
				t.Error("force update not consumed")
			}

			drawFrame(p, surf, parisScreen())
			if inv := gen.takeInvalidations(); len(inv) != 0 {
				t.Errorf("second frame invalidated again: %v", inv)
			}
			if covers := gen.takeCovers(); len(covers) != 1 || covers[0].Recreate {
				t.Errorf("second frame covers = %v, want one without recreate", covers)
			}
		})
	}
}

// =============================================================================
// Fences and accessors
// =============================================================================

func TestTilingPolicy_BenchmarkFence(t *testing.T) {
	p, gen, _ := newTestPolicy(t)
	surf := render.NewPixmapSurface(800, 600)
	s := parisScreen()

	drawFrame(p, surf, s)
	f := p.InsertBenchmarkFence()
	p.JoinBenchmarkFence(f)
	if gen.LastFence() < f {
		t.Errorf("LastFence = %d after joining %d", gen.LastFence(), f)
	}

	p.BeginFrame(s)
	p.DrawFrame(surf, s)
	assertPanics(t, "JoinBenchmarkFence", func() { p.JoinBenchmarkFence(p.InsertBenchmarkFence()) })
	p.EndFrame(s)
}

func TestTilingPolicy_Accessors(t *testing.T) {
	p, _, tiles := newTestPolicy(t, WithScreenSize(1500, 1500))

	if p.TileSize() != 512 || p.ScaleEtalonSize() != 512 {
		t.Errorf("TileSize = %d, ScaleEtalonSize = %d, want 512", p.TileSize(), p.ScaleEtalonSize())
	}
	if !p.IsTiling() {
		t.Error("IsTiling = false")
	}
	if p.TileRenderer() != TileRenderer(tiles) {
		t.Error("TileRenderer does not return the configured renderer")
	}
	if p.IsEmptyModel() || p.RegionName() != "" || p.DrawScale() != 0 {
		t.Error("fresh policy reports coverage metadata")
	}
}

func TestTilingPolicy_DrawScaleRecorded(t *testing.T) {
	p, gen, _ := newTestPolicy(t)
	surf := render.NewPixmapSurface(800, 600)
	s := parisScreen()

	drawFrame(p, surf, s)
	p.JoinBenchmarkFence(p.InsertBenchmarkFence())
	drawFrame(p, surf, s)

	want := int(s.DrawZoom(gen.TileSize()))
	if p.DrawScale() != want {
		t.Errorf("DrawScale = %d, want %d", p.DrawScale(), want)
	}
}
