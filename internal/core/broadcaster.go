// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Delivery resolves routing descriptors to live players and performs
// per-player transport delivery. The session registry implements it.
type Delivery interface {
	SendToPlayer(ctx context.Context, playerID uuid.UUID, evt Event) DeliverySummary
	RoomSubscribers(roomID string) []uuid.UUID
	OnlinePlayers() []uuid.UUID
}

// Broadcaster builds sequence-stamped event envelopes and fans them out to
// players via the session registry. It also feeds in-process subscribers
// (taps), such as the messaging forwarder.
type Broadcaster struct {
	delivery Delivery
	canon    func(string) string

	seq atomic.Uint64

	mu   sync.RWMutex
	taps []chan Event
}

// NewBroadcaster creates a broadcaster. canon normalizes room ids before
// routing; pass nil to route on ids as given.
func NewBroadcaster(delivery Delivery, canon func(string) string) *Broadcaster {
	if canon == nil {
		canon = func(s string) string { return s }
	}
	return &Broadcaster{
		delivery: delivery,
		canon:    canon,
	}
}

// Build constructs an immutable event with the next sequence number and
// the current wall-clock timestamp. Room routing ids are canonicalized.
func (b *Broadcaster) Build(t EventType, data map[string]any, routing Routing) Event {
	if routing.Room != "" {
		routing.Room = b.canon(routing.Room)
	}
	return Event{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Sequence:  b.seq.Add(1),
		Routing:   routing,
	}
}

// Sequence returns the last assigned sequence number.
func (b *Broadcaster) Sequence() uint64 {
	return b.seq.Load()
}

// Deliver routes an event to its recipients. Individual transport failures
// are counted but never abort delivery to remaining recipients.
func (b *Broadcaster) Deliver(ctx context.Context, evt Event) DeliverySummary {
	var summary DeliverySummary

	switch {
	case evt.Routing.Player != nil:
		summary = b.delivery.SendToPlayer(ctx, *evt.Routing.Player, evt)
	case evt.Routing.Room != "":
		for _, id := range b.delivery.RoomSubscribers(evt.Routing.Room) {
			if evt.Routing.Exclude != nil && id == *evt.Routing.Exclude {
				continue
			}
			s := b.delivery.SendToPlayer(ctx, id, evt)
			summary.Success += s.Success
			summary.Failures += s.Failures
		}
	case evt.Routing.Global:
		for _, id := range b.delivery.OnlinePlayers() {
			s := b.delivery.SendToPlayer(ctx, id, evt)
			summary.Success += s.Success
			summary.Failures += s.Failures
		}
	default:
		slog.Warn("event with empty routing dropped",
			"event_type", string(evt.Type),
			"sequence", evt.Sequence,
		)
		return summary
	}

	b.fanOutTaps(evt)
	return summary
}

// SendPersonal builds and delivers a single-player event.
func (b *Broadcaster) SendPersonal(ctx context.Context, playerID uuid.UUID, t EventType, data map[string]any) DeliverySummary {
	return b.Deliver(ctx, b.Build(t, data, RouteToPlayer(playerID)))
}

// BroadcastRoom builds and delivers a room event, optionally excluding one
// player.
func (b *Broadcaster) BroadcastRoom(ctx context.Context, roomID string, t EventType, data map[string]any, exclude *uuid.UUID) DeliverySummary {
	return b.Deliver(ctx, b.Build(t, data, RouteToRoom(roomID, exclude)))
}

// BroadcastGlobal builds and delivers an event to every online player.
func (b *Broadcaster) BroadcastGlobal(ctx context.Context, t EventType, data map[string]any) DeliverySummary {
	return b.Deliver(ctx, b.Build(t, data, RouteGlobal()))
}

// Subscribe creates a tap channel receiving a copy of every delivered
// event. Taps that fall behind lose events rather than blocking delivery.
func (b *Broadcaster) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buffer <= 0 {
		buffer = 100
	}
	ch := make(chan Event, buffer)
	b.taps = append(b.taps, ch)
	return ch
}

// Unsubscribe removes and closes a tap channel.
func (b *Broadcaster) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, tap := range b.taps {
		if tap == ch {
			b.taps = append(b.taps[:i], b.taps[i+1:]...)
			close(tap)
			return
		}
	}
}

// Close closes all tap channels. Called once during shutdown, after the
// tick loop and command pipeline have stopped emitting.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tap := range b.taps {
		close(tap)
	}
	b.taps = nil
}

func (b *Broadcaster) fanOutTaps(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, tap := range b.taps {
		select {
		case tap <- evt:
		default:
			slog.Warn("event dropped: tap buffer full",
				"event_type", string(evt.Type),
				"sequence", evt.Sequence,
			)
		}
	}
}
