// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResourceManager_Get(t *testing.T) {
	m := NewResourceManager(nil, 256)

	img := m.Get()
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Errorf("texture size = %v, want 256x256", img.Bounds())
	}
	if _, ok := m.Device().(NullDeviceHandle); !ok {
		t.Errorf("Device() = %T, want NullDeviceHandle", m.Device())
	}

	want := PoolStats{Allocated: 1, InUse: 1}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceManager_PutIsDeferred(t *testing.T) {
	m := NewResourceManager(NullDeviceHandle{}, 128)

	a := m.Get()
	a.Pix[0] = 0xFF
	m.Put(a)

	if got := m.Stats(); got.Pending != 1 || got.Free != 0 {
		t.Fatalf("after Put: %+v, want 1 pending, 0 free", got)
	}

	// Not reusable before the frame reconciles the pool.
	b := m.Get()
	if b == a {
		t.Fatal("texture reused before UpdatePoolState")
	}
	m.Put(b)

	m.UpdatePoolState()
	want := PoolStats{Allocated: 2, InUse: 0, Free: 2}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}

	c := m.Get()
	if c != a && c != b {
		t.Error("expected a pooled texture to be reused")
	}
	if c.Pix[0] != 0 {
		t.Error("reused texture must be zeroed")
	}
}

func TestResourceManager_Discards(t *testing.T) {
	m := NewResourceManager(nil, 64, WithMaxFreeTextures(1))

	m.Put(m.Get())
	m.Put(m.Get())
	m.Put(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	m.Put(nil)
	m.UpdatePoolState()

	s := m.Stats()
	if s.Free != 1 {
		t.Errorf("Free = %d, want 1", s.Free)
	}
	if s.Discarded != 2 {
		t.Errorf("Discarded = %d, want 2", s.Discarded)
	}
}

func TestResourceManager_Concurrent(t *testing.T) {
	m := NewResourceManager(nil, 32)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				m.Put(m.Get())
			}
		}()
	}
	for range 10 {
		m.UpdatePoolState()
	}
	wg.Wait()
	m.UpdatePoolState()

	if s := m.Stats(); s.InUse != 0 || s.Pending != 0 {
		t.Errorf("after concurrent use: %+v, want nothing in use or pending", s)
	}
}
