// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package game is the tick loop and the simulation services it drives:
// status effects, combat rounds, spell casting, vitals decay and death,
// NPC maintenance, and corpse cleanup.
package game

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/core"
)

// DefaultTickInterval is the production tick cadence.
const DefaultTickInterval = time.Second

// MaintenanceCadence is how many ticks pass between NPC maintenance and
// corpse cleanup runs.
const MaintenanceCadence = 60

// TickProvider exposes the current tick counter to the simulation
// services.
type TickProvider interface {
	CurrentTick() uint64
}

// StageFunc is one ordered unit of per-tick work.
type StageFunc func(ctx context.Context, tick uint64) error

// Stage pairs a stage with its name for logs and metrics.
type Stage struct {
	Name string
	Fn   StageFunc
}

// SchedulerConfig configures the tick loop.
type SchedulerConfig struct {
	// Interval between ticks. Defaults to DefaultTickInterval; tests
	// shrink it.
	Interval time.Duration
}

// Scheduler is the single game loop. Each iteration advances the global
// tick counter, runs the stages strictly in order, and emits the
// game_tick broadcast only after every stage has applied its changes.
// A stage failure or panic is logged and skipped; the loop never exits
// on a recoverable error.
type Scheduler struct {
	interval time.Duration
	stages   []Stage
	sessions *core.SessionRegistry
	events   *core.Broadcaster

	tick atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewScheduler creates a scheduler over the given ordered stages.
func NewScheduler(cfg SchedulerConfig, sessions *core.SessionRegistry, events *core.Broadcaster, stages []Stage) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	return &Scheduler{
		interval: cfg.Interval,
		stages:   stages,
		sessions: sessions,
		events:   events,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// CurrentTick returns the most recently completed tick number.
func (s *Scheduler) CurrentTick() uint64 {
	return s.tick.Load()
}

// Start launches the loop goroutine. Subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Stop signals the loop and waits for its exit, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return oops.Code("TICK_STOP_TIMEOUT").Wrapf(ctx.Err(), "tick loop did not stop")
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("game tick loop started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("game tick loop stopping", "reason", "context cancelled", "tick", s.tick.Load())
			return
		case <-s.stop:
			slog.Info("game tick loop stopping", "reason", "shutdown", "tick", s.tick.Load())
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// runTick executes one full iteration. Cancellation is honored at every
// stage boundary; an in-progress stage unwinds on its own.
func (s *Scheduler) runTick(ctx context.Context) {
	tick := s.tick.Add(1)

	for _, stage := range s.stages {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}
		s.runStage(ctx, stage, tick)
	}

	active := len(s.sessions.OnlinePlayers())
	ActivePlayers.Set(float64(active))
	GameTicks.Inc()

	s.events.BroadcastGlobal(ctx, core.EventGameTick, map[string]any{
		"tick_number":    tick,
		"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
		"active_players": active,
	})
}

// runStage invokes one stage behind a panic fence. A failing stage loses
// this tick's work only.
func (s *Scheduler) runStage(ctx context.Context, stage Stage, tick uint64) {
	start := time.Now()
	defer recordStage(stage.Name, start)
	defer func() {
		if r := recover(); r != nil {
			TickStageFailures.WithLabelValues(stage.Name).Inc()
			slog.Error("tick stage panicked",
				"stage", stage.Name,
				"tick", tick,
				"panic", r,
			)
		}
	}()

	if err := stage.Fn(ctx, tick); err != nil {
		TickStageFailures.WithLabelValues(stage.Name).Inc()
		slog.Error("tick stage failed",
			"stage", stage.Name,
			"tick", tick,
			"error", err,
		)
	}
}
