// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GameTicks counts completed tick loop iterations.
var GameTicks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "mythosmud_game_ticks_total",
		Help: "Total number of completed game tick iterations",
	},
)

// TickStageDuration tracks per-stage execution time.
var TickStageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "mythosmud_tick_stage_duration_seconds",
		Help:    "Tick stage execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"stage"},
)

// TickStageFailures counts stage errors and panics.
var TickStageFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mythosmud_tick_stage_failures_total",
		Help: "Total number of tick stage failures",
	},
	[]string{"stage"},
)

// ActivePlayers tracks the online player count sampled at each tick.
var ActivePlayers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "mythosmud_active_players",
		Help: "Online players at the most recent game tick",
	},
)

// RegisterMetrics registers game loop metrics with the registry. Must be
// called once at startup.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(GameTicks)
	reg.MustRegister(TickStageDuration)
	reg.MustRegister(TickStageFailures)
	reg.MustRegister(ActivePlayers)
}

func recordStage(stage string, start time.Time) {
	TickStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
