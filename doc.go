// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tilemap is the orchestration core of a tiled map renderer.
//
// # Overview
//
// A map view is drawn from square raster tiles that are produced
// asynchronously by a pool of tile workers. tilemap decides the tile size
// from the screen geometry, drives the per-frame Begin/Draw/End lifecycle
// that couples background tile production with synchronous presentation,
// suspends and cancels stale work during pan, zoom and rotate gestures, and
// exposes benchmark fences for deterministic pipeline measurements.
//
// # Architecture
//
// The module is organized leaf-first:
//   - screen: immutable per-frame view snapshot (center, zoom, size, angle)
//   - cache: reference-counted tiles and a sharded LRU tile cache
//   - render: drawing surfaces and GPU resource pool bookkeeping
//   - tilerender: pausable, cancellable tile worker pool
//   - queued: deferred command queue bracketed by the frame lifecycle
//   - coverage: the coverage generator, its guarded current coverage and fences
//   - policy: tile size calculation, navigation and the frame lifecycle
//
// # Logging
//
// tilemap is silent by default. Use [SetLogger] to route diagnostics to a
// [log/slog] handler; every sub-package shares the logger returned by [Logger].
//
// # Quick Start
//
// policy.NewStack assembles every component for a screen size:
//
//	st, err := policy.NewStack(ctx, policy.StackConfig{
//		Width:      800,
//		Height:     600,
//		Rasterizer: tilerender.CheckerRasterizer{},
//	})
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	s := screen.New(orb.Point{2.35, 48.85}, 12, 800, 600, 0)
//	st.Policy.BeginFrame(s)
//	st.Policy.DrawFrame(surface, s)
//	st.Policy.EndFrame(s)
//
// The pieces can also be wired by hand:
//
//	res := render.NewResourceManager(render.NullDeviceHandle{}, tileSize)
//	tr := tilerender.New(tilerender.CheckerRasterizer{}, res)
//	gen := coverage.New(tr, cache.NewTileCache(0))
//	gen.Start(ctx)
//	p := policy.New(gen, tr, policy.WithScreenSize(800, 600))
package tilemap

// Version is the current version of the module.
const Version = "0.1.0"
