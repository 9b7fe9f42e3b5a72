// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle is the host's GPU device, shared with the rest of the
// gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// TextureUsage is a set of tile texture usage flags.
type TextureUsage uint32

// Tile textures are written by uploads and read by the frame pass.
const (
	TextureUsageCopyDst TextureUsage = 1 << iota
	TextureUsageTextureBinding
	TextureUsageRenderAttachment
)

// TextureDescriptor describes the square textures pooled by a
// ResourceManager.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  TextureUsage
}

// TileTextureDescriptor returns the descriptor of a tileSize texture in
// format, or RGBA8Unorm when the device has no preferred format.
func TileTextureDescriptor(tileSize uint32, format gputypes.TextureFormat) TextureDescriptor {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return TextureDescriptor{
		Label:  "tile",
		Width:  tileSize,
		Height: tileSize,
		Format: format,
		Usage:  TextureUsageCopyDst | TextureUsageTextureBinding,
	}
}

// NullDeviceHandle stands in for a GPU when tiles live in CPU memory only.
type NullDeviceHandle struct{}

func (NullDeviceHandle) Device() gpucontext.Device   { return nil }
func (NullDeviceHandle) Queue() gpucontext.Queue     { return nil }
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat reports no preferred format.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}
