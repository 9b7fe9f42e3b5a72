// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package queued implements a deferred command queue executed inside the
// frame lifecycle.
//
// Background producers cannot touch GPU state directly. Instead they post
// packets into one of several pipelines; the frame goroutine executes the
// packets that were pending at the start of DrawFrame, strictly inside a
// BeginFrame/EndFrame window.
package queued

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/tilemap"
	"github.com/gogpu/tilemap/internal/metrics"
)

// Packet is a deferred command.
type Packet struct {
	// Run executes the command on the frame goroutine.
	Run func()

	// Drop, if non-nil, is called when the packet is discarded unexecuted.
	Drop func()
}

type pipeline struct {
	mu      sync.Mutex
	packets []Packet
}

// Renderer is a set of packet pipelines flushed once per frame.
//
// Post is safe for concurrent use. BeginFrame, DrawFrame and EndFrame must be
// called from a single goroutine, in that order.
type Renderer struct {
	pipelines []*pipeline
	next      atomic.Uint64
	pending   atomic.Int64
	maxPerRun int

	inFrame bool
	session uuid.UUID
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxPacketsPerFrame limits how many packets each pipeline executes per
// DrawFrame. Zero or negative means no limit.
func WithMaxPacketsPerFrame(n int) Option {
	return func(r *Renderer) {
		r.maxPerRun = max(n, 0)
	}
}

// New creates a renderer with the given number of pipelines (at least one).
func New(pipelines int, opts ...Option) *Renderer {
	pipelines = max(pipelines, 1)
	r := &Renderer{pipelines: make([]*pipeline, pipelines)}
	for i := range r.pipelines {
		r.pipelines[i] = &pipeline{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipelines returns the number of pipelines.
func (r *Renderer) Pipelines() int {
	return len(r.pipelines)
}

// Post appends a packet to a pipeline. Packets within one pipeline execute
// in posting order. A negative index selects pipelines round-robin.
func (r *Renderer) Post(index int, p Packet) {
	if index < 0 {
		index = int(r.next.Add(1) % uint64(len(r.pipelines)))
	}
	pl := r.pipelines[index%len(r.pipelines)]
	r.pending.Add(1)
	pl.mu.Lock()
	pl.packets = append(pl.packets, p)
	pl.mu.Unlock()
}

// BeginFrame opens a frame session.
func (r *Renderer) BeginFrame() {
	if r.inFrame {
		panic("queued: BeginFrame called inside a frame")
	}
	r.inFrame = true
	r.session = uuid.New()
}

// DrawFrame executes the packets pending when it was called and returns how
// many ran. Packets posted while it runs wait for the next frame.
func (r *Renderer) DrawFrame() int {
	if !r.inFrame {
		panic("queued: DrawFrame called outside a frame")
	}

	batches := make([][]Packet, len(r.pipelines))
	for i, pl := range r.pipelines {
		pl.mu.Lock()
		n := len(pl.packets)
		if r.maxPerRun > 0 {
			n = min(n, r.maxPerRun)
		}
		batches[i] = pl.packets[:n:n]
		pl.packets = pl.packets[n:]
		pl.mu.Unlock()
	}

	executed := 0
	for _, batch := range batches {
		for _, p := range batch {
			r.pending.Add(-1)
			if p.Run != nil {
				p.Run()
			}
			executed++
		}
	}

	if executed > 0 {
		metrics.RecordPackets(executed)
		tilemap.Logger().Debug("queued: packets executed",
			"session", r.session, "executed", executed, "pending", r.pending.Load())
	}
	return executed
}

// EndFrame closes the frame session.
func (r *Renderer) EndFrame() {
	if !r.inFrame {
		panic("queued: EndFrame called without BeginFrame")
	}
	r.inFrame = false
}

// InFrame reports whether a frame session is open.
func (r *Renderer) InFrame() bool {
	return r.inFrame
}

// Session returns the id of the current or last frame session.
func (r *Renderer) Session() uuid.UUID {
	return r.session
}

// Pending returns the number of packets waiting for execution.
func (r *Renderer) Pending() int {
	return int(r.pending.Load())
}

// NeedsRedraw reports whether packets are waiting for a frame.
func (r *Renderer) NeedsRedraw() bool {
	return r.pending.Load() > 0
}

// CancelPending discards every waiting packet and returns the count.
func (r *Renderer) CancelPending() int {
	var dropped []Packet
	for _, pl := range r.pipelines {
		pl.mu.Lock()
		dropped = append(dropped, pl.packets...)
		pl.packets = nil
		pl.mu.Unlock()
	}
	r.pending.Add(-int64(len(dropped)))
	for _, p := range dropped {
		if p.Drop != nil {
			p.Drop()
		}
	}
	return len(dropped)
}
