// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import (
	"time"

	"github.com/gogpu/tilemap"
	"github.com/gogpu/tilemap/internal/metrics"
)

// IsNavigating reports whether a gesture is in progress.
func (p *TilingPolicy) IsNavigating() bool {
	return p.navigating.Load()
}

// StartDrag begins a pan gesture.
func (p *TilingPolicy) StartDrag() { p.startNavigation() }

// StartScale begins a zoom gesture.
func (p *TilingPolicy) StartScale() { p.startNavigation() }

// StartRotate begins a rotation gesture.
func (p *TilingPolicy) StartRotate(_ float64, _ time.Duration) { p.startNavigation() }

// StopDrag ends a pan gesture.
func (p *TilingPolicy) StopDrag() {
	p.stopNavigation()
	p.hooks.StopDrag()
}

// StopScale ends a zoom gesture.
func (p *TilingPolicy) StopScale() {
	p.stopNavigation()
	p.hooks.StopScale()
}

// StopRotate ends a rotation gesture.
func (p *TilingPolicy) StopRotate(angle float64, d time.Duration) {
	p.stopNavigation()
	p.hooks.StopRotate(angle, d)
}

// startNavigation halts tile intake and drops every outstanding tile
// command; results still in flight are discarded when they finish.
func (p *TilingPolicy) startNavigation() {
	p.tiles.SetPaused(true)
	p.navigating.Store(true)
	n := p.tiles.CancelCommands()
	metrics.RecordNavigation()
	tilemap.Logger().Debug("policy: navigation started", "cancelled", n)
}

// stopNavigation resumes tile intake and makes the next frame rebuild the
// coverage.
func (p *TilingPolicy) stopNavigation() {
	p.tiles.SetPaused(false)
	p.navigating.Store(false)
	p.doRecreate.Store(true)
}
