// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tilerender runs tile rasterization on a pausable, cancellable
// worker pool.
//
// Every dispatched command carries its own cancellation token. A finished
// command checks its token and publishes its tile while holding the token's
// lock, so once CancelCommands returns, no cancelled command can publish.
// CancelCommands never waits for running rasterizers; their results are
// simply dropped.
package tilerender

import (
	"context"
	"errors"
	"sync"

	"github.com/paulmach/orb/maptile"

	"github.com/gogpu/tilemap"
	"github.com/gogpu/tilemap/cache"
	"github.com/gogpu/tilemap/internal/metrics"
	"github.com/gogpu/tilemap/internal/parallel"
	"github.com/gogpu/tilemap/queued"
	"github.com/gogpu/tilemap/render"
)

// ErrClosed is returned when submitting to a closed renderer.
var ErrClosed = errors.New("tilerender: renderer closed")

// Publisher receives a finished tile. The tile reference belongs to the
// renderer; publishers that keep the tile must Retain it.
type Publisher func(t *cache.Tile)

// token is the liveness token of one command.
type token struct {
	mu        sync.Mutex
	cancelled bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func (tk *token) revoke() {
	tk.mu.Lock()
	tk.cancelled = true
	tk.mu.Unlock()
	tk.cancel()
}

type command struct {
	key     maptile.Tile
	tok     *token
	publish Publisher
}

// Renderer produces tiles asynchronously.
//
// Thread safety: Renderer is safe for concurrent use.
type Renderer struct {
	rast   Rasterizer
	res    *render.ResourceManager
	pool   *parallel.WorkerPool
	queue  *queued.Renderer
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[maptile.Tile]*command
	closed bool
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	workers int
	queue   *queued.Renderer
}

// WithWorkers sets the number of worker goroutines (default GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueuedRenderer defers tile publication to the frame goroutine: finished
// tiles are posted as packets and published during queued.Renderer.DrawFrame.
func WithQueuedRenderer(q *queued.Renderer) Option {
	return func(o *options) { o.queue = q }
}

// New creates a renderer drawing with rast into textures from res.
func New(rast Rasterizer, res *render.ResourceManager, opts ...Option) *Renderer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Renderer{
		rast:   rast,
		res:    res,
		pool:   parallel.NewWorkerPool(o.workers),
		queue:  o.queue,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[maptile.Tile]*command),
	}
}

// TileSize returns the edge length of produced tiles.
func (r *Renderer) TileSize() int {
	return r.res.TileSize()
}

// Workers returns the number of worker goroutines.
func (r *Renderer) Workers() int {
	return r.pool.Workers()
}

// Render schedules rasterization of key. publish is called with the tile
// unless the command is cancelled or fails. A key that already has a live
// command is not scheduled twice; Render then returns false.
func (r *Renderer) Render(key maptile.Tile, publish Publisher) (bool, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, ErrClosed
	}
	if _, ok := r.active[key]; ok {
		r.mu.Unlock()
		return false, nil
	}
	ctx, cancel := context.WithCancel(r.ctx)
	cmd := &command{key: key, tok: &token{ctx: ctx, cancel: cancel}, publish: publish}
	r.active[key] = cmd
	r.mu.Unlock()

	r.pool.Submit(parallel.Job{
		Run:  func() { r.execute(cmd) },
		Drop: func() { r.finish(cmd, metrics.OutcomeCancelled) },
	})
	return true, nil
}

// execute runs on a worker goroutine.
func (r *Renderer) execute(cmd *command) {
	if cmd.tok.ctx.Err() != nil {
		r.finish(cmd, metrics.OutcomeCancelled)
		return
	}

	img := r.res.Get()
	empty, err := r.rast.RenderTile(cmd.tok.ctx, cmd.key, img)
	if err != nil {
		r.res.Put(img)
		if cmd.tok.ctx.Err() != nil {
			r.finish(cmd, metrics.OutcomeCancelled)
			return
		}
		tilemap.Logger().Warn("tilerender: rasterizer failed", "tile", cmd.key, "err", err)
		r.finish(cmd, metrics.OutcomeFailed)
		return
	}

	tile := cache.NewTile(cmd.key, img, empty, r.res.Put)
	if r.queue != nil {
		r.queue.Post(-1, queued.Packet{
			Run: func() { r.publish(cmd, tile) },
			Drop: func() {
				tile.Release()
				r.finish(cmd, metrics.OutcomeCancelled)
			},
		})
		return
	}
	r.publish(cmd, tile)
}

// publish hands the tile over unless the command was cancelled.
func (r *Renderer) publish(cmd *command, tile *cache.Tile) {
	outcome := metrics.OutcomePublished

	cmd.tok.mu.Lock()
	if cmd.tok.cancelled {
		outcome = metrics.OutcomeCancelled
	} else if cmd.publish != nil {
		cmd.publish(tile)
	}
	cmd.tok.mu.Unlock()

	tile.Release()
	r.finish(cmd, outcome)
}

func (r *Renderer) finish(cmd *command, outcome string) {
	r.mu.Lock()
	if r.active[cmd.key] == cmd {
		delete(r.active, cmd.key)
	}
	r.mu.Unlock()
	cmd.tok.cancel()

	metrics.RecordTileOutcome(outcome)
	if outcome == metrics.OutcomeCancelled {
		tilemap.Logger().Debug("tilerender: command discarded", "tile", cmd.key)
	}
}

// SetPaused halts or resumes intake of queued commands. Commands already
// running keep going.
func (r *Renderer) SetPaused(paused bool) {
	r.pool.SetPaused(paused)
}

// IsPaused reports whether intake is halted.
func (r *Renderer) IsPaused() bool {
	return r.pool.Paused()
}

// CancelCommands revokes every queued and running command and returns how
// many were live. It does not wait for running rasterizers.
func (r *Renderer) CancelCommands() int {
	r.mu.Lock()
	live := make([]*command, 0, len(r.active))
	for _, cmd := range r.active {
		live = append(live, cmd)
	}
	clear(r.active)
	r.mu.Unlock()

	for _, cmd := range live {
		cmd.tok.revoke()
	}
	r.pool.DropQueued()

	if len(live) > 0 {
		tilemap.Logger().Debug("tilerender: commands cancelled", "count", len(live))
	}
	return len(live)
}

// ActiveCommands returns the number of live commands.
func (r *Renderer) ActiveCommands() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// IsActive reports whether key has a live command.
func (r *Renderer) IsActive(key maptile.Tile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[key]
	return ok
}

// Wait blocks until the worker pool is idle. Waiting on a paused renderer
// with queued commands blocks until it is resumed.
func (r *Renderer) Wait() {
	r.pool.Wait()
}

// Close cancels all commands and stops the workers.
func (r *Renderer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.CancelCommands()
	r.cancel()
	r.pool.Close()
}
