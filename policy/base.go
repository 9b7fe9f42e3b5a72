// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import (
	"image/color"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

// GestureHooks receives the end of every navigation gesture after the
// tiling policy has done its own bookkeeping.
type GestureHooks interface {
	StopDrag()
	StopScale()
	StopRotate(angle float64, d time.Duration)
}

// Base holds the state shared by every render policy: the region that must
// be redrawn, the one-shot force-update request, the redraw request flag and
// the background color. Its methods are safe for concurrent use.
//
// Base implements [GestureHooks] by requesting a redraw.
type Base struct {
	mu          sync.Mutex
	invalidRect orb.Bound
	hasInvalid  bool
	forceUpdate bool
	needRedraw  bool
	bg          color.Color
}

// NewBase returns a Base clearing frames to bg.
func NewBase(bg color.Color) *Base {
	if bg == nil {
		bg = color.White
	}
	return &Base{bg: bg}
}

// Background returns the frame clear color.
func (b *Base) Background() color.Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bg
}

// SetBackground changes the frame clear color.
func (b *Base) SetBackground(c color.Color) {
	b.mu.Lock()
	b.bg = c
	b.mu.Unlock()
}

// SetInvalidRect marks the lon/lat rectangle whose tiles are stale.
func (b *Base) SetInvalidRect(r orb.Bound) {
	b.mu.Lock()
	b.invalidRect = r
	b.hasInvalid = true
	b.mu.Unlock()
}

// ClearInvalidRect forgets the stale region.
func (b *Base) ClearInvalidRect() {
	b.mu.Lock()
	b.invalidRect = orb.Bound{}
	b.hasInvalid = false
	b.mu.Unlock()
}

// InvalidRect returns the stale region. ok is false when none is set; an
// unset region intersects nothing.
func (b *Base) InvalidRect() (r orb.Bound, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invalidRect, b.hasInvalid
}

// SetForceUpdate requests that the next frame refresh the stale region.
func (b *Base) SetForceUpdate(v bool) {
	b.mu.Lock()
	b.forceUpdate = v
	b.mu.Unlock()
}

// DoForceUpdate reports whether a forced update is pending.
func (b *Base) DoForceUpdate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forceUpdate
}

// consumeForceUpdate reads and clears the force-update request.
func (b *Base) consumeForceUpdate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.forceUpdate
	b.forceUpdate = false
	return v
}

// SetNeedRedraw sets the redraw request flag.
func (b *Base) SetNeedRedraw(v bool) {
	b.mu.Lock()
	b.needRedraw = v
	b.mu.Unlock()
}

// NeedsRedraw reports whether a redraw was requested.
func (b *Base) NeedsRedraw() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needRedraw
}

// StopDrag requests a redraw.
func (b *Base) StopDrag() { b.SetNeedRedraw(true) }

// StopScale requests a redraw.
func (b *Base) StopScale() { b.SetNeedRedraw(true) }

// StopRotate requests a redraw.
func (b *Base) StopRotate(float64, time.Duration) { b.SetNeedRedraw(true) }

var _ GestureHooks = (*Base)(nil)
