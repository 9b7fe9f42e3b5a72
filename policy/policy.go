// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package policy implements the tiling render policy: the per-frame
// orchestration that couples asynchronous tile generation with synchronous
// presentation.
//
// Every frame is driven from one goroutine in strict order:
//
//	p.BeginFrame(s)
//	p.DrawFrame(surface, s)
//	p.EndFrame(s)
//
// DrawFrame schedules a coverage rebuild for the view (unless a gesture is in
// progress), then draws the current coverage while holding its lease. The
// lease stays held until EndFrame, so the frame never mixes tiles from one
// coverage with metadata from another. Gestures pause and cancel tile
// rendering; the first frame after a gesture rebuilds the coverage.
package policy

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/gogpu/tilemap"
	"github.com/gogpu/tilemap/coverage"
	"github.com/gogpu/tilemap/internal/metrics"
	"github.com/gogpu/tilemap/render"
	"github.com/gogpu/tilemap/screen"
)

// CoverageGenerator maintains the current coverage. It is implemented by
// [coverage.Generator].
type CoverageGenerator interface {
	Guard() *coverage.Guard
	AddCoverScreenTask(s screen.Screen, recreate bool)
	InvalidateTiles(rect orb.Bound, minScale int)
	InsertFence() coverage.FenceID
	JoinFence(id coverage.FenceID)
}

// TileRenderer is the pausable, cancellable tile producer. It is implemented
// by tilerender.Renderer.
type TileRenderer interface {
	SetPaused(paused bool)
	CancelCommands() int
}

// QueuedRenderer defers work to the frame goroutine. It is implemented by
// queued.Renderer.
type QueuedRenderer interface {
	BeginFrame()
	DrawFrame() int
	EndFrame()
	NeedsRedraw() bool
}

// PoolUpdater reclaims textures returned since the previous frame. It is
// implemented by [render.ResourceManager].
type PoolUpdater interface {
	UpdatePoolState()
}

type phase uint8

const (
	phaseIdle phase = iota
	phaseBegun
	phaseDrawn
)

var phaseNames = [...]string{"idle", "begun", "drawn"}

func (p phase) String() string { return phaseNames[p] }

// TilingPolicy is the frame lifecycle controller of a tiled map.
//
// BeginFrame, DrawFrame, EndFrame and the gesture methods must be called
// from one goroutine. The force-update and invalid-region state on [Base]
// may be set from any goroutine.
type TilingPolicy struct {
	base   *Base
	hooks  GestureHooks
	gen    CoverageGenerator
	tiles  TileRenderer
	queued QueuedRenderer
	res    PoolUpdater

	tileSize      int
	width, height int

	phase phase
	lease *coverage.Lease

	navigating atomic.Bool
	doRecreate atomic.Bool

	mu         sync.Mutex
	drawScale  int
	emptyModel bool
	regionName string
}

// Option configures a TilingPolicy.
type Option func(*options)

type options struct {
	width, height int
	queued        QueuedRenderer
	res           PoolUpdater
	hooks         GestureHooks
	bg            color.Color
}

// WithScreenSize sets the screen size the tile size is derived from.
//
// Example:
//
//	p := policy.New(gen, tr, policy.WithScreenSize(1920, 1080))
func WithScreenSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithQueuedRenderer flushes q inside every DrawFrame and brackets its frame
// session with BeginFrame and EndFrame.
func WithQueuedRenderer(q QueuedRenderer) Option {
	return func(o *options) {
		o.queued = q
	}
}

// WithResourceManager reclaims returned textures after each queued flush.
// It only takes effect together with WithQueuedRenderer.
func WithResourceManager(res PoolUpdater) Option {
	return func(o *options) {
		o.res = res
	}
}

// WithHooks replaces the gesture-stop hooks. By default the policy's [Base]
// handles them.
func WithHooks(h GestureHooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithBackground sets the frame clear color. The default is white.
func WithBackground(c color.Color) Option {
	return func(o *options) {
		o.bg = c
	}
}

// New creates a tiling policy over gen and tr.
func New(gen CoverageGenerator, tr TileRenderer, opts ...Option) *TilingPolicy {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &TilingPolicy{
		base:     NewBase(o.bg),
		gen:      gen,
		tiles:    tr,
		queued:   o.queued,
		res:      o.res,
		tileSize: TileSize(o.width, o.height),
		width:    o.width,
		height:   o.height,
	}
	p.hooks = o.hooks
	if p.hooks == nil {
		p.hooks = p.base
	}

	tilemap.Logger().Info("policy: created",
		"screen", fmt.Sprintf("%dx%d", o.width, o.height),
		"tileSize", p.tileSize,
	)
	return p
}

// Base returns the shared policy state.
func (p *TilingPolicy) Base() *Base {
	return p.base
}

// BeginFrame starts a frame. It panics if the previous frame was not ended.
func (p *TilingPolicy) BeginFrame(_ screen.Screen) {
	if p.phase != phaseIdle {
		panic(fmt.Sprintf("policy: BeginFrame in phase %s", p.phase))
	}
	if p.queued != nil {
		p.queued.BeginFrame()
	}
	p.base.SetNeedRedraw(false)
	p.phase = phaseBegun
}

// DrawFrame schedules coverage work for s and draws the current coverage
// onto surface. The coverage lease taken here is held until EndFrame.
func (p *TilingPolicy) DrawFrame(surface render.Surface, s screen.Screen) {
	if p.phase != phaseBegun {
		panic(fmt.Sprintf("policy: DrawFrame in phase %s", p.phase))
	}

	if p.queued != nil {
		p.queued.DrawFrame()
		if p.res != nil {
			p.res.UpdatePoolState()
		}
	}

	force := p.base.consumeForceUpdate()
	invalid, hasInvalid := p.base.InvalidRect()
	intersects := hasInvalid && s.Intersects(invalid)

	if force && hasInvalid {
		p.gen.InvalidateTiles(invalid, screen.UpperWorldScale+1)
	}
	if !p.navigating.Load() {
		p.gen.AddCoverScreenTask(s, p.doRecreate.Load() || (force && intersects))
	}
	p.doRecreate.Store(false)

	surface.BeginFrame()
	surface.Clear(p.base.Background())

	p.lease = p.gen.Guard().Acquire()
	p.phase = phaseDrawn
	defer func() {
		if r := recover(); r != nil {
			p.abortFrame()
			panic(r)
		}
	}()

	cov := p.lease.Coverage()
	cov.Draw(surface.Image(), s)
	p.record(cov)

	surface.EndFrame()
	metrics.RecordFrame()
}

// record captures the coverage metadata exposed by the policy accessors.
func (p *TilingPolicy) record(cov *coverage.Coverage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawScale = cov.DrawScale()
	if !cov.IsEmptyDrawing() || !cov.IsPartial() {
		p.emptyModel = cov.IsEmptyDrawing() && cov.IsEmptyModelAtCenter()
		if p.emptyModel {
			p.regionName = cov.RegionNameAtCenter()
		}
	}
}

// EndFrame releases the coverage lease and ends the frame.
func (p *TilingPolicy) EndFrame(_ screen.Screen) {
	if p.phase != phaseDrawn {
		panic(fmt.Sprintf("policy: EndFrame in phase %s", p.phase))
	}
	p.lease.Release()
	p.lease = nil
	p.phase = phaseIdle
	if p.queued != nil {
		p.queued.EndFrame()
	}
}

// abortFrame unwinds a frame whose drawing panicked.
func (p *TilingPolicy) abortFrame() {
	if p.lease != nil {
		p.lease.Release()
		p.lease = nil
	}
	p.phase = phaseIdle
	if p.queued != nil {
		p.queued.EndFrame()
	}
}

// NeedsRedraw reports whether another frame should be drawn.
func (p *TilingPolicy) NeedsRedraw() bool {
	if p.base.NeedsRedraw() {
		return true
	}
	return p.queued != nil && p.queued.NeedsRedraw()
}

// TileSize returns the tile edge length in pixels.
func (p *TilingPolicy) TileSize() int {
	return p.tileSize
}

// ScaleEtalonSize returns the reference size for scale computations, which
// for a tiling policy is the tile size.
func (p *TilingPolicy) ScaleEtalonSize() int {
	return p.tileSize
}

// DrawScale returns the zoom of the coverage drawn by the last frame.
func (p *TilingPolicy) DrawScale() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drawScale
}

// IsEmptyModel reports whether the last complete frame showed no map data
// at the view center.
func (p *TilingPolicy) IsEmptyModel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emptyModel
}

// RegionName returns the region at the view center recorded when the model
// was last found empty there.
func (p *TilingPolicy) RegionName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.regionName
}

// IsTiling reports that this policy draws tiles.
func (p *TilingPolicy) IsTiling() bool {
	return true
}

// TileRenderer returns the tile producer driven by the policy.
func (p *TilingPolicy) TileRenderer() TileRenderer {
	return p.tiles
}
