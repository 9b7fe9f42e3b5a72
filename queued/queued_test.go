// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package queued

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	if got := New(0).Pipelines(); got != 1 {
		t.Errorf("New(0).Pipelines() = %d, want 1", got)
	}
	if got := New(5).Pipelines(); got != 5 {
		t.Errorf("New(5).Pipelines() = %d, want 5", got)
	}
}

func TestRenderer_FrameFlushesPending(t *testing.T) {
	r := New(2)

	var order []string
	r.Post(0, Packet{Run: func() { order = append(order, "a1") }})
	r.Post(1, Packet{Run: func() { order = append(order, "b1") }})
	r.Post(0, Packet{Run: func() { order = append(order, "a2") }})

	if !r.NeedsRedraw() || r.Pending() != 3 {
		t.Fatalf("NeedsRedraw() = %v, Pending() = %d; want true/3", r.NeedsRedraw(), r.Pending())
	}

	r.BeginFrame()
	if r.Session() == uuid.Nil {
		t.Error("BeginFrame should open a session")
	}
	if n := r.DrawFrame(); n != 3 {
		t.Errorf("DrawFrame() = %d, want 3", n)
	}
	r.EndFrame()

	if diff := cmp.Diff([]string{"a1", "a2", "b1"}, order); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
	if r.NeedsRedraw() {
		t.Error("NeedsRedraw() = true after flushing everything")
	}
}

func TestRenderer_PacketsPostedDuringDrawWaitForNextFrame(t *testing.T) {
	r := New(1)
	var ran []int
	r.Post(0, Packet{Run: func() {
		ran = append(ran, 1)
		r.Post(0, Packet{Run: func() { ran = append(ran, 2) }})
	}})

	r.BeginFrame()
	r.DrawFrame()
	r.EndFrame()
	if diff := cmp.Diff([]int{1}, ran); diff != "" {
		t.Fatalf("first frame mismatch (-want +got):\n%s", diff)
	}
	if !r.NeedsRedraw() {
		t.Fatal("packet posted during DrawFrame should request a redraw")
	}

	r.BeginFrame()
	r.DrawFrame()
	r.EndFrame()
	if diff := cmp.Diff([]int{1, 2}, ran); diff != "" {
		t.Errorf("second frame mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_MaxPacketsPerFrame(t *testing.T) {
	r := New(1, WithMaxPacketsPerFrame(2))
	for range 5 {
		r.Post(0, Packet{Run: func() {}})
	}

	r.BeginFrame()
	if n := r.DrawFrame(); n != 2 {
		t.Errorf("DrawFrame() = %d, want 2", n)
	}
	r.EndFrame()
	if r.Pending() != 3 {
		t.Errorf("Pending() = %d, want 3", r.Pending())
	}
}

func TestRenderer_CancelPending(t *testing.T) {
	r := New(3)
	dropped := 0
	for i := range 6 {
		r.Post(i, Packet{
			Run:  func() { t.Error("cancelled packet ran") },
			Drop: func() { dropped++ },
		})
	}

	if n := r.CancelPending(); n != 6 {
		t.Errorf("CancelPending() = %d, want 6", n)
	}
	if dropped != 6 || r.NeedsRedraw() {
		t.Errorf("dropped = %d, NeedsRedraw() = %v; want 6/false", dropped, r.NeedsRedraw())
	}

	r.BeginFrame()
	r.DrawFrame()
	r.EndFrame()
}

func TestRenderer_RoundRobin(t *testing.T) {
	r := New(4)
	for range 8 {
		r.Post(-1, Packet{})
	}
	for i, pl := range r.pipelines {
		if len(pl.packets) != 2 {
			t.Errorf("pipeline %d has %d packets, want 2", i, len(pl.packets))
		}
	}
}

func TestRenderer_ConcurrentPost(t *testing.T) {
	r := New(4)
	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				r.Post(w, Packet{Run: func() { mu.Lock(); ran++; mu.Unlock() }})
			}
		}()
	}
	wg.Wait()

	r.BeginFrame()
	r.DrawFrame()
	r.EndFrame()
	if ran != 400 {
		t.Errorf("ran = %d, want 400", ran)
	}
}

func TestRenderer_OrderViolationsPanic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r *Renderer)
	}{
		{"draw outside frame", func(r *Renderer) { r.DrawFrame() }},
		{"end without begin", func(r *Renderer) { r.EndFrame() }},
		{"nested begin", func(r *Renderer) { r.BeginFrame(); r.BeginFrame() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn(New(1))
		})
	}
}
