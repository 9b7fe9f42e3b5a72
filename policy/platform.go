// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package policy

import "runtime"

// Platform describes the host the policy runs on.
type Platform interface {
	// CPUCores returns the number of cores available for tile rendering.
	CPUCores() int
}

// HostPlatform reports the cores of the current process.
type HostPlatform struct{}

// CPUCores returns runtime.NumCPU.
func (HostPlatform) CPUCores() int { return runtime.NumCPU() }

// FixedPlatform reports a fixed core count.
type FixedPlatform int

// CPUCores returns the fixed count, at least 1.
func (p FixedPlatform) CPUCores() int { return max(int(p), 1) }
