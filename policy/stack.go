// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/gogpu/tilemap/cache"
	"github.com/gogpu/tilemap/coverage"
	"github.com/gogpu/tilemap/queued"
	"github.com/gogpu/tilemap/render"
	"github.com/gogpu/tilemap/tilerender"
)

// ErrNoRasterizer is returned by NewStack when no rasterizer is configured.
var ErrNoRasterizer = errors.New("policy: stack needs a rasterizer")

// StackConfig describes a complete tiling pipeline.
type StackConfig struct {
	// Width and Height are the screen size in pixels.
	Width, Height int

	// Rasterizer draws tile content. Required.
	Rasterizer tilerender.Rasterizer

	// Model is probed at the view center. Optional.
	Model coverage.Model

	// Device is the host GPU device. Defaults to render.NullDeviceHandle.
	Device render.DeviceHandle

	// Platform sizes the worker pools. Defaults to HostPlatform.
	Platform Platform

	// UseQueuedRenderer publishes tiles on the frame goroutine through a
	// queued renderer with one pipeline more than the platform has cores.
	UseQueuedRenderer bool

	// CacheCapacity bounds the tile cache. Zero sizes it to four screens.
	CacheCapacity int

	// MaxFreeTextures bounds idle pooled textures. Zero keeps the default.
	MaxFreeTextures int

	Background color.Color
	Hooks      GestureHooks
}

// Stack is an assembled tiling pipeline.
type Stack struct {
	Policy    *TilingPolicy
	Generator *coverage.Generator
	Renderer  *tilerender.Renderer
	Queued    *queued.Renderer
	Resources *render.ResourceManager
	Cache     *cache.TileCache
}

// NewStack builds and starts a tiling pipeline. The coverage generator runs
// until ctx is cancelled or the stack is closed.
func NewStack(ctx context.Context, cfg StackConfig) (*Stack, error) {
	if cfg.Rasterizer == nil {
		return nil, ErrNoRasterizer
	}
	platform := cfg.Platform
	if platform == nil {
		platform = HostPlatform{}
	}
	cores := platform.CPUCores()
	tileSize := TileSize(cfg.Width, cfg.Height)

	var resOpts []render.ResourceOption
	if cfg.MaxFreeTextures > 0 {
		resOpts = append(resOpts, render.WithMaxFreeTextures(cfg.MaxFreeTextures))
	}
	st := &Stack{Resources: render.NewResourceManager(cfg.Device, tileSize, resOpts...)}

	trOpts := []tilerender.Option{tilerender.WithWorkers(cores)}
	if cfg.UseQueuedRenderer {
		st.Queued = queued.New(cores + 1)
		trOpts = append(trOpts, tilerender.WithQueuedRenderer(st.Queued))
	}
	st.Renderer = tilerender.New(cfg.Rasterizer, st.Resources, trOpts...)

	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 4 * tilesPerScreen(cfg.Width, cfg.Height, tileSize)
	}
	st.Cache = cache.NewTileCache(capacity)

	var genOpts []coverage.Option
	if cfg.Model != nil {
		genOpts = append(genOpts, coverage.WithModel(cfg.Model))
	}
	st.Generator = coverage.New(st.Renderer, st.Cache, genOpts...)
	if err := st.Generator.Start(ctx); err != nil {
		st.Renderer.Close()
		return nil, fmt.Errorf("policy: start coverage generator: %w", err)
	}

	opts := []Option{
		WithScreenSize(cfg.Width, cfg.Height),
		WithBackground(cfg.Background),
	}
	if cfg.Hooks != nil {
		opts = append(opts, WithHooks(cfg.Hooks))
	}
	if st.Queued != nil {
		opts = append(opts, WithQueuedRenderer(st.Queued), WithResourceManager(st.Resources))
	}
	st.Policy = New(st.Generator, st.Renderer, opts...)
	return st, nil
}

// Close stops tile rendering and the generator and returns every texture
// to the pool.
func (st *Stack) Close() {
	st.Renderer.Close()
	st.Generator.Close()
	if st.Queued != nil {
		st.Queued.CancelPending()
	}
	st.Resources.UpdatePoolState()
}

// tilesPerScreen returns how many tiles of tileSize a screen can touch.
func tilesPerScreen(width, height, tileSize int) int {
	cols := max(width, 0)/tileSize + 2
	rows := max(height, 0)/tileSize + 2
	return cols * rows
}
