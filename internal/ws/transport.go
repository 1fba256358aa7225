// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/core"
)

const writeTimeout = 5 * time.Second

// transport adapts one websocket connection to core.Transport. gorilla
// permits a single concurrent writer, so all writes go through mu.
type transport struct {
	id   ulid.ULID
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newTransport(conn *websocket.Conn) *transport {
	return &transport{id: core.NewULID(), conn: conn}
}

func (t *transport) ID() ulid.ULID { return t.id }

// Send writes the event's client frame as a JSON text message.
func (t *transport) Send(ctx context.Context, evt core.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return oops.Code("TRANSPORT_CLOSED").Errorf("transport %s is closed", t.id)
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return oops.Code("TRANSPORT_WRITE_FAILED").Wrap(err)
	}
	if err := t.conn.WriteJSON(evt.Frame()); err != nil {
		return oops.Code("TRANSPORT_WRITE_FAILED").
			With("transport_id", t.id.String()).
			With("event_type", string(evt.Type)).
			Wrap(err)
	}
	return nil
}

// Close sends a close frame with the reason and tears the connection down.
// Safe to call more than once.
func (t *transport) Close(reason string) error {
	return t.closeWithCode(websocket.CloseNormalClosure, reason)
}

func (t *transport) closeWithCode(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(writeTimeout)
	// Best effort; the peer may already be gone.
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	if err := t.conn.Close(); err != nil {
		return oops.Code("TRANSPORT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
