// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"sync"

	"github.com/gogpu/tilemap"
)

// DefaultMaxFreeTextures bounds the free list kept by a ResourceManager.
const DefaultMaxFreeTextures = 64

// PoolStats is a snapshot of the tile texture pool.
type PoolStats struct {
	// Allocated is the number of textures created over the pool's lifetime.
	Allocated int

	// InUse is the number of textures handed out and not yet returned.
	InUse int

	// Free is the number of textures ready for reuse.
	Free int

	// Pending is the number of returned textures not yet reconciled by
	// UpdatePoolState.
	Pending int

	// Discarded is the number of returned textures dropped because the
	// free list was full or the texture had the wrong size.
	Discarded int
}

// ResourceManager owns the tile texture pool.
//
// Tile workers take textures with Get and give them back with Put. Returned
// textures are not reusable until the frame goroutine calls UpdatePoolState,
// so a texture released by one goroutine while the current frame still
// samples it is never handed to a worker in the same frame.
//
// Thread safety: ResourceManager is safe for concurrent use.
type ResourceManager struct {
	handle  DeviceHandle
	desc    TextureDescriptor
	maxFree int

	mu      sync.Mutex
	free    []*image.RGBA
	pending []*image.RGBA
	stats   PoolStats
}

// ResourceOption configures a ResourceManager.
type ResourceOption func(*ResourceManager)

// WithMaxFreeTextures bounds the number of idle textures kept for reuse.
func WithMaxFreeTextures(n int) ResourceOption {
	return func(m *ResourceManager) {
		if n >= 0 {
			m.maxFree = n
		}
	}
}

// NewResourceManager creates a tile texture pool for tiles of tileSize
// pixels. A nil handle is replaced by NullDeviceHandle.
func NewResourceManager(handle DeviceHandle, tileSize int, opts ...ResourceOption) *ResourceManager {
	if handle == nil {
		handle = NullDeviceHandle{}
	}
	m := &ResourceManager{
		handle:  handle,
		desc:    TileTextureDescriptor(uint32(max(tileSize, 1)), handle.SurfaceFormat()), //nolint:gosec // clamped positive
		maxFree: DefaultMaxFreeTextures,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Device returns the host device handle.
func (m *ResourceManager) Device() DeviceHandle {
	return m.handle
}

// TileDescriptor returns the descriptor of the pooled tile textures.
func (m *ResourceManager) TileDescriptor() TextureDescriptor {
	return m.desc
}

// TileSize returns the edge length of the pooled textures.
func (m *ResourceManager) TileSize() int {
	return int(m.desc.Width)
}

// Get returns a zeroed tile texture, reusing a free one when available.
func (m *ResourceManager) Get() *image.RGBA {
	m.mu.Lock()
	m.stats.InUse++
	if n := len(m.free); n > 0 {
		img := m.free[n-1]
		m.free[n-1] = nil
		m.free = m.free[:n-1]
		m.mu.Unlock()
		clear(img.Pix)
		return img
	}
	m.stats.Allocated++
	m.mu.Unlock()

	size := m.TileSize()
	return image.NewRGBA(image.Rect(0, 0, size, size))
}

// Put returns a texture to the pool. The texture becomes reusable at the
// next UpdatePoolState. Nil textures are ignored.
func (m *ResourceManager) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	m.mu.Lock()
	m.stats.InUse--
	m.pending = append(m.pending, img)
	m.mu.Unlock()
}

// UpdatePoolState reconciles textures returned since the previous call.
// Called once per frame from the frame goroutine.
func (m *ResourceManager) UpdatePoolState() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return
	}

	size := m.TileSize()
	reclaimed := 0
	for i, img := range m.pending {
		m.pending[i] = nil
		if len(m.free) >= m.maxFree || img.Bounds().Dx() != size || img.Bounds().Dy() != size {
			m.stats.Discarded++
			continue
		}
		m.free = append(m.free, img)
		reclaimed++
	}
	m.pending = m.pending[:0]

	tilemap.Logger().Debug("render: texture pool updated",
		"reclaimed", reclaimed, "free", len(m.free), "inUse", m.stats.InUse)
}

// Stats returns a snapshot of the pool state.
func (m *ResourceManager) Stats() PoolStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Free = len(m.free)
	s.Pending = len(m.pending)
	return s
}
