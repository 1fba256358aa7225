// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/core"
)

func TestSchedulerBroadcastsIncreasingTicks(t *testing.T) {
	w := newTestWorld(t)
	_, tr := w.join(t, "Armitage", "test_room_a_001")

	s := NewScheduler(SchedulerConfig{Interval: 20 * time.Millisecond}, w.sessions, w.events, nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	eventually(t, func() bool {
		return len(tr.byType(core.EventGameTick)) >= 3
	}, "expected at least three game_tick events")

	ticks := tr.byType(core.EventGameTick)
	var prev uint64
	for i, evt := range ticks[:3] {
		n, ok := evt.Data["tick_number"].(uint64)
		require.True(t, ok, "tick_number missing")
		if i > 0 {
			assert.Equal(t, prev+1, n, "tick numbers must increase by exactly 1")
		}
		assert.Equal(t, 1, evt.Data["active_players"])
		prev = n
	}
}

func TestSchedulerStageOrder(t *testing.T) {
	w := newTestWorld(t)

	var order []string
	mk := func(name string) Stage {
		return Stage{Name: name, Fn: func(context.Context, uint64) error {
			order = append(order, name)
			return nil
		}}
	}
	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, w.sessions, w.events,
		[]Stage{mk("first"), mk("second"), mk("third")})
	s.Start(context.Background())

	eventually(t, func() bool { return s.CurrentTick() >= 1 }, "tick never ran")
	require.NoError(t, s.Stop(context.Background()))

	require.GreaterOrEqual(t, len(order), 3)
	assert.Equal(t, []string{"first", "second", "third"}, order[:3])
}

func TestSchedulerSurvivesStagePanicAndError(t *testing.T) {
	w := newTestWorld(t)

	var after atomic.Uint64
	stages := []Stage{
		{Name: "panics", Fn: func(context.Context, uint64) error { panic("boom") }},
		{Name: "fails", Fn: func(context.Context, uint64) error { return errors.New("bad") }},
		{Name: "runs", Fn: func(_ context.Context, tick uint64) error {
			after.Store(tick)
			return nil
		}},
	}
	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, w.sessions, w.events, stages)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	eventually(t, func() bool { return after.Load() >= 2 }, "later stage stopped running after earlier panic")
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	w := newTestWorld(t)

	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, w.sessions, w.events, nil)
	s.Start(context.Background())

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerHonorsContextCancel(t *testing.T) {
	w := newTestWorld(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, w.sessions, w.events, nil)
	s.Start(ctx)

	eventually(t, func() bool { return s.CurrentTick() >= 1 }, "tick never ran")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
}
