// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import "github.com/gogpu/tilemap/coverage"

// InsertBenchmarkFence marks the current end of the coverage work queue.
func (p *TilingPolicy) InsertBenchmarkFence() coverage.FenceID {
	return p.gen.InsertFence()
}

// JoinBenchmarkFence blocks until every coverage command enqueued before
// fence id has completed.
//
// Coverage swaps wait for the frame lease, so a join between DrawFrame and
// EndFrame can block forever; JoinBenchmarkFence panics in that phase.
func (p *TilingPolicy) JoinBenchmarkFence(id coverage.FenceID) {
	if p.phase == phaseDrawn {
		panic("policy: JoinBenchmarkFence while the frame holds the coverage lease")
	}
	p.gen.JoinFence(id)
}
