// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package messaging forwards selected game events to NATS so external
// collaborators (analytics, moderation tooling) can observe combat and
// player-lifecycle activity without a websocket session. The forwarder
// is optional: when no NATS URL is configured the server runs without
// it, and publish failures never disturb in-game delivery.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/mythosmud/mythosmud/internal/core"
)

// Subjects are derived from the event type: combat events publish under
// mythos.combat.<type>, player-lifecycle events under mythos.players.<type>.
const (
	combatSubjectPrefix = "mythos.combat."
	playerSubjectPrefix = "mythos.players."
)

// forwarded maps event types to their NATS subject. Events outside this
// map stay in-process only.
var forwarded = map[core.EventType]string{
	core.EventCombatStarted:         combatSubjectPrefix + "started",
	core.EventCombatAttack:          combatSubjectPrefix + "attack",
	core.EventCombatDeath:           combatSubjectPrefix + "death",
	core.EventCombatEnded:           combatSubjectPrefix + "ended",
	core.EventPlayerMortallyWounded: playerSubjectPrefix + "mortally_wounded",
	core.EventPlayerDied:            playerSubjectPrefix + "died",
	core.EventPlayerRespawned:       playerSubjectPrefix + "respawned",
}

// Connect dials NATS with exponential backoff. Startup tolerates a broker
// that is still coming up, but gives up once the backoff budget is spent.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	var conn *nats.Conn
	backoff := retry.WithMaxDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		conn, err = nats.Connect(url, nats.Name("mythosmud"))
		if err != nil {
			slog.Warn("nats connect failed, retrying", "url", url, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("NATS_CONNECT_FAILED").Wrapf(err, "connecting to %s", url)
	}
	return conn, nil
}

// Publisher is the subset of nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder drains a broadcaster tap and publishes forwarded events as
// JSON frames.
type Forwarder struct {
	pub    Publisher
	events *core.Broadcaster

	mu   sync.Mutex
	tap  <-chan core.Event
	done chan struct{}
}

// NewForwarder creates a forwarder over an established publisher.
func NewForwarder(pub Publisher, events *core.Broadcaster) *Forwarder {
	return &Forwarder{pub: pub, events: events}
}

// Start subscribes a tap and begins forwarding. Idempotent per forwarder.
func (f *Forwarder) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tap != nil {
		return
	}
	f.tap = f.events.Subscribe(256)
	f.done = make(chan struct{})
	go f.run(f.tap, f.done)
}

// Stop unsubscribes the tap and waits for the drain goroutine to finish.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	tap, done := f.tap, f.done
	f.tap, f.done = nil, nil
	f.mu.Unlock()

	if tap == nil {
		return
	}
	f.events.Unsubscribe(tap)
	<-done
}

func (f *Forwarder) run(tap <-chan core.Event, done chan struct{}) {
	defer close(done)
	for evt := range tap {
		subject, ok := forwarded[evt.Type]
		if !ok {
			continue
		}
		payload, err := json.Marshal(evt.Frame())
		if err != nil {
			slog.Warn("nats forward skipped: marshal failed",
				"event_type", string(evt.Type),
				"error", err,
			)
			continue
		}
		if err := f.pub.Publish(subject, payload); err != nil {
			slog.Warn("nats publish failed",
				"subject", subject,
				"event_type", string(evt.Type),
				"error", err,
			)
		}
	}
}
