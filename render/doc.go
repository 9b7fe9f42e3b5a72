// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the drawing surface and GPU resource bookkeeping
// used by the tiling render policy.
//
// # Key Principle
//
// tilemap RECEIVES a GPU device from the host application, it does NOT
// create its own. The host passes a [DeviceHandle]; CPU-only hosts use
// [NullDeviceHandle].
//
// # Core Types
//
//   - Surface: per-frame drawing target (BeginFrame, Clear, EndFrame)
//   - PixmapSurface: CPU-backed *image.RGBA surface
//   - ResourceManager: tile texture pool whose bookkeeping is refreshed once
//     per frame on the UI goroutine by UpdatePoolState
//
// # Thread Safety
//
// Surfaces are used from the frame goroutine only. ResourceManager.Get and
// ResourceManager.Put are safe for concurrent use by tile workers.
package render
