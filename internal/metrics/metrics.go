// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics holds the prometheus collectors of the tiling pipeline.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tilemap"

	// --- Subsystems ---
	PolicySubsystem   = "policy"
	CoverageSubsystem = "coverage"
	TileSubsystem     = "tile"
	QueuedSubsystem   = "queued"
)

var (
	framesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: PolicySubsystem,
			Name:      "frames_total",
			Help:      "Number of frames drawn by the tiling policy.",
		},
	)

	navigationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: PolicySubsystem,
			Name:      "navigations_total",
			Help:      "Number of gestures that suspended tile production.",
		},
	)

	coverTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: CoverageSubsystem,
			Name:      "cover_tasks_total",
			Help:      "Number of cover-screen tasks enqueued, by recreate flag.",
		},
		[]string{"recreate"},
	)

	coverageSwapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: CoverageSubsystem,
			Name:      "swaps_total",
			Help:      "Number of times the current coverage was replaced.",
		},
	)

	leaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: CoverageSubsystem,
			Name:      "lease_duration_seconds",
			Help:      "Time the current coverage lock was held by a reader.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1, 0.25, 1},
		},
	)

	tilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: TileSubsystem,
			Name:      "results_total",
			Help:      "Tile render commands by outcome (published, cancelled, failed).",
		},
		[]string{"outcome"},
	)

	packetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: QueuedSubsystem,
			Name:      "packets_executed_total",
			Help:      "Number of deferred packets executed inside a frame.",
		},
	)
)

// Tile command outcomes.
const (
	OutcomePublished = "published"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

var registerMetrics sync.Once

// Register registers all collectors with reg. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	registerMetrics.Do(func() {
		reg.MustRegister(
			framesTotal,
			navigationsTotal,
			coverTasksTotal,
			coverageSwapsTotal,
			leaseDuration,
			tilesTotal,
			packetsTotal,
		)
	})
}

// RecordFrame counts a drawn frame.
func RecordFrame() {
	framesTotal.Inc()
}

// RecordNavigation counts a gesture start.
func RecordNavigation() {
	navigationsTotal.Inc()
}

// RecordCoverTask counts an enqueued cover-screen task.
func RecordCoverTask(recreate bool) {
	coverTasksTotal.WithLabelValues(strconv.FormatBool(recreate)).Inc()
}

// RecordCoverageSwap counts a replacement of the current coverage.
func RecordCoverageSwap() {
	coverageSwapsTotal.Inc()
}

// RecordLease observes how long the coverage lock was held.
func RecordLease(held time.Duration) {
	leaseDuration.Observe(held.Seconds())
}

// RecordTileOutcome counts a finished tile command.
func RecordTileOutcome(outcome string) {
	tilesTotal.WithLabelValues(outcome).Inc()
}

// RecordPackets counts executed deferred packets.
func RecordPackets(n int) {
	packetsTotal.Add(float64(n))
}
