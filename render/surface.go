// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Surface is the drawing target of one rendered frame.
//
// The policy brackets all drawing between BeginFrame and EndFrame. EndFrame
// submits the frame's pixels to the host.
//
// Surfaces are NOT thread-safe. Each surface is driven from the frame
// goroutine only.
type Surface interface {
	// BeginFrame starts a new frame.
	BeginFrame()

	// Clear fills the entire surface with the given color.
	Clear(c color.Color)

	// Image returns the drawable pixel buffer of the current frame.
	Image() draw.Image

	// EndFrame finishes the frame and submits its pixels.
	EndFrame()
}

// PixmapSurface is a CPU-backed Surface using *image.RGBA.
//
// Example:
//
//	s := render.NewPixmapSurface(800, 600)
//	s.BeginFrame()
//	s.Clear(color.White)
//	s.EndFrame()
//	img := s.Snapshot()
type PixmapSurface struct {
	img     *image.RGBA
	inFrame bool
	frames  uint64
	present func(*image.RGBA)
}

// NewPixmapSurface creates a new CPU-backed surface.
func NewPixmapSurface(width, height int) *PixmapSurface {
	return &PixmapSurface{
		img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))),
	}
}

// OnPresent registers a hook called with the frame buffer at every EndFrame.
// The image is only valid for the duration of the call.
func (s *PixmapSurface) OnPresent(fn func(*image.RGBA)) {
	s.present = fn
}

// Width returns the surface width in pixels.
func (s *PixmapSurface) Width() int {
	return s.img.Bounds().Dx()
}

// Height returns the surface height in pixels.
func (s *PixmapSurface) Height() int {
	return s.img.Bounds().Dy()
}

// BeginFrame starts a new frame. Nested frames are a programming error.
func (s *PixmapSurface) BeginFrame() {
	if s.inFrame {
		panic("render: PixmapSurface.BeginFrame called inside a frame")
	}
	s.inFrame = true
}

// Clear fills the entire surface with the given color.
func (s *PixmapSurface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Image returns the underlying frame buffer.
func (s *PixmapSurface) Image() draw.Image {
	return s.img
}

// EndFrame finishes the frame and calls the present hook, if any.
func (s *PixmapSurface) EndFrame() {
	if !s.inFrame {
		panic("render: PixmapSurface.EndFrame called without BeginFrame")
	}
	s.inFrame = false
	s.frames++
	if s.present != nil {
		s.present(s.img)
	}
}

// InFrame reports whether a frame is in progress.
func (s *PixmapSurface) InFrame() bool {
	return s.inFrame
}

// Frames returns the number of completed frames.
func (s *PixmapSurface) Frames() uint64 {
	return s.frames
}

// Snapshot returns a copy of the current frame buffer.
func (s *PixmapSurface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

var _ Surface = (*PixmapSurface)(nil)
