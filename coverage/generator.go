// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package coverage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/tilemap"
	"github.com/gogpu/tilemap/cache"
	"github.com/gogpu/tilemap/internal/metrics"
	"github.com/gogpu/tilemap/screen"
	"github.com/gogpu/tilemap/tilerender"
)

// ErrClosed is returned by Start after the generator has been closed.
var ErrClosed = errors.New("coverage: generator closed")

// FenceID identifies a fence in the generator command queue. IDs increase
// monotonically starting at 1.
type FenceID int

// TileRenderer schedules tile rasterization on behalf of the generator.
// It is implemented by [tilerender.Renderer].
type TileRenderer interface {
	Render(key maptile.Tile, publish tilerender.Publisher) (bool, error)
	TileSize() int
}

type taskKind uint8

const (
	taskCoverScreen taskKind = iota
	taskMergeTile
	taskInvalidate
	taskFence
)

type task struct {
	kind     taskKind
	screen   screen.Screen
	recreate bool
	tile     *cache.Tile
	rect     orb.Bound
	minScale int
	fence    FenceID
}

// Generator maintains the current coverage on a single goroutine.
//
// Every mutation (cover tasks, merged tiles, invalidations, fences) goes
// through one FIFO command queue, so a fence is signalled only after every
// command enqueued before it has completed. The coverage itself is read
// through [Generator.Guard].
type Generator struct {
	rend     TileRenderer
	cache    *cache.TileCache
	model    Model
	guard    *Guard
	tileSize int

	mu        sync.Mutex
	queue     []task
	started   bool
	closed    bool
	nextFence FenceID
	lastFence FenceID
	fences    map[FenceID]chan struct{}

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the model probed at the view center of every new coverage.
// Without a model the map is assumed to have data everywhere.
func WithModel(m Model) Option {
	return func(g *Generator) {
		g.model = m
	}
}

// New creates a generator drawing tiles from tc and requesting missing ones
// from rend. Call Start to begin processing commands.
func New(rend TileRenderer, tc *cache.TileCache, opts ...Option) *Generator {
	g := &Generator{
		rend:     rend,
		cache:    tc,
		guard:    newGuard(newEmpty()),
		tileSize: rend.TileSize(),
		fences:   make(map[FenceID]chan struct{}),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start launches the command goroutine. It stops when ctx is cancelled or
// Close is called. Starting twice is a no-op.
func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.started {
		return nil
	}
	g.started = true
	go g.run(ctx)
	return nil
}

// Close stops the command goroutine, drops queued commands, releases every
// fence joiner and the current coverage tiles.
func (g *Generator) Close() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		started := g.started
		g.mu.Unlock()
		close(g.quit)

		if started {
			<-g.done
		} else {
			g.shutdown()
		}
		g.guard.swap(newEmpty()).release()
	})
}

// Guard returns the guard protecting the current coverage.
func (g *Generator) Guard() *Guard {
	return g.guard
}

// TileSize returns the tile edge length the generator builds coverages for.
func (g *Generator) TileSize() int {
	return g.tileSize
}

// Pending returns the number of queued commands.
func (g *Generator) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// AddCoverScreenTask schedules a coverage rebuild for s. With recreate unset,
// a task for the view the current coverage already covers only re-requests
// missing tiles. Consecutive queued cover tasks collapse into the latest one.
func (g *Generator) AddCoverScreenTask(s screen.Screen, recreate bool) {
	g.enqueue(task{kind: taskCoverScreen, screen: s, recreate: recreate})
}

// MergeTile adds a rendered tile to the cache and to the current coverage if
// it needs it. It is the publisher handed to the tile renderer and never
// blocks on the generator.
func (g *Generator) MergeTile(t *cache.Tile) {
	t.Retain()
	if !g.enqueue(task{kind: taskMergeTile, tile: t}) {
		t.Release()
	}
}

// InvalidateTiles evicts cached tiles with zoom >= minScale whose bounds
// intersect rect.
func (g *Generator) InvalidateTiles(rect orb.Bound, minScale int) {
	g.enqueue(task{kind: taskInvalidate, rect: rect, minScale: minScale})
}

// InsertFence enqueues a fence and returns its id. The fence is signalled
// once every command enqueued before it has completed.
func (g *Generator) InsertFence() FenceID {
	g.mu.Lock()
	g.nextFence++
	id := g.nextFence
	if g.closed {
		g.lastFence = id
		g.mu.Unlock()
		return id
	}
	g.fences[id] = make(chan struct{})
	g.queue = append(g.queue, task{kind: taskFence, fence: id})
	g.mu.Unlock()
	g.signal()
	return id
}

// JoinFence blocks until fence id has been signalled. Ids that are already
// signalled or were never issued return immediately.
func (g *Generator) JoinFence(id FenceID) {
	_ = g.JoinFenceContext(context.Background(), id)
}

// JoinFenceContext is JoinFence with cancellation.
func (g *Generator) JoinFenceContext(ctx context.Context, id FenceID) error {
	g.mu.Lock()
	ch, ok := g.fences[id]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastFence returns the id of the most recently signalled fence.
func (g *Generator) LastFence() FenceID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFence
}

func (g *Generator) enqueue(t task) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	if n := len(g.queue); t.kind == taskCoverScreen && n > 0 && g.queue[n-1].kind == taskCoverScreen {
		last := &g.queue[n-1]
		last.screen = t.screen
		last.recreate = last.recreate || t.recreate
	} else {
		g.queue = append(g.queue, t)
	}
	g.mu.Unlock()
	g.signal()
	return true
}

func (g *Generator) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *Generator) run(ctx context.Context) {
	defer close(g.done)
	defer g.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.quit:
			return
		case <-g.wake:
		}
		for {
			g.mu.Lock()
			if len(g.queue) == 0 || g.closed {
				g.mu.Unlock()
				break
			}
			t := g.queue[0]
			g.queue[0] = task{}
			g.queue = g.queue[1:]
			g.mu.Unlock()
			g.process(t)
		}
	}
}

// shutdown drops queued commands and releases fence joiners.
func (g *Generator) shutdown() {
	g.mu.Lock()
	g.closed = true
	pending := g.queue
	g.queue = nil
	fences := g.fences
	g.fences = make(map[FenceID]chan struct{})
	g.lastFence = g.nextFence
	g.mu.Unlock()

	for _, t := range pending {
		if t.tile != nil {
			t.tile.Release()
		}
	}
	for _, ch := range fences {
		close(ch)
	}
}

func (g *Generator) process(t task) {
	switch t.kind {
	case taskCoverScreen:
		g.coverScreen(t.screen, t.recreate)
	case taskMergeTile:
		g.mergeTile(t.tile)
	case taskInvalidate:
		g.invalidate(t.rect, t.minScale)
	case taskFence:
		g.mu.Lock()
		ch := g.fences[t.fence]
		delete(g.fences, t.fence)
		g.lastFence = t.fence
		g.mu.Unlock()
		if ch != nil {
			close(ch)
		}
	}
}

// The methods below run on the command goroutine, the only writer of the
// guarded coverage, so they may read g.guard.cur without the lock.

func (g *Generator) coverScreen(s screen.Screen, recreate bool) {
	metrics.RecordCoverTask(recreate)
	cur := g.guard.cur
	if prev, ok := cur.Screen(); ok && !recreate && prev.Equal(s) {
		g.requestMissing(cur)
		return
	}

	z := s.DrawZoom(g.tileSize)
	next := &Coverage{
		screen:    s,
		hasScreen: true,
		zoom:      z,
		required:  s.Tiles(z),
		tiles:     make(map[maptile.Tile]*cache.Tile),
	}
	slices.SortFunc(next.required, compareTiles)
	for _, k := range next.required {
		if t, ok := g.cache.Get(k); ok {
			next.tiles[k] = t
		}
	}
	g.probeModel(next)
	g.requestMissing(next)

	g.guard.swap(next).release()
	tilemap.Logger().Debug("coverage: swapped",
		"zoom", int(z),
		"tiles", len(next.required),
		"cached", len(next.tiles),
		"recreate", recreate,
	)
}

func (g *Generator) requestMissing(c *Coverage) {
	for _, k := range c.Missing() {
		if _, err := g.rend.Render(k, g.MergeTile); err != nil {
			tilemap.Logger().Debug("coverage: tile request rejected", "tile", k, "err", err)
			return
		}
	}
}

func (g *Generator) probeModel(c *Coverage) {
	if g.model == nil {
		return
	}
	center := c.screen.Center()
	if g.model.HasDataAt(center) {
		return
	}
	c.emptyModel = true
	c.regionName = norm.NFC.String(g.model.RegionNameAt(center))
}

func (g *Generator) mergeTile(t *cache.Tile) {
	g.cache.Add(t)
	g.guard.update(func(c *Coverage) {
		if c.needs(t.Key) {
			c.tiles[t.Key] = t.Retain()
		}
	})
	t.Release()
}

func (g *Generator) invalidate(rect orb.Bound, minScale int) {
	n := g.cache.RemoveIf(func(k maptile.Tile) bool {
		return int(k.Z) >= minScale && k.Bound().Intersects(rect)
	})
	if n > 0 {
		tilemap.Logger().Debug("coverage: tiles invalidated", "count", n, "minScale", minScale)
	}
}
