// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mythosmud/mythosmud/internal/core"
)

var tracer = otel.Tracer("mythosmud/command")

// DefaultCommandTimeout bounds a single handler invocation.
const DefaultCommandTimeout = 30 * time.Second

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// MaxCommandLength is the raw input cap fed to the normalizer.
	// Defaults to DefaultMaxCommandLength.
	MaxCommandLength int

	// CommandTimeout is the per-handler deadline. Defaults to
	// DefaultCommandTimeout.
	CommandTimeout time.Duration
}

// Dispatcher drives a command from raw transport bytes to a handler: it
// normalizes, expands aliases behind the cycle guard, parses, applies the
// flood guard, dispatches to the variant handler, and sends the
// command_response back to the player. Handler panics and errors stop at
// the dispatch boundary.
type Dispatcher struct {
	registry    *Registry
	services    *Services
	audit       *AuditLog    // optional
	rateLimiter *RateLimiter // optional
	cfg         DispatcherConfig
}

// NewDispatcher creates a dispatcher. audit and rateLimiter may be nil.
func NewDispatcher(registry *Registry, services *Services, audit *AuditLog, rateLimiter *RateLimiter, cfg DispatcherConfig) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.Errorf("registry is nil")
	}
	if services == nil {
		return nil, oops.Errorf("services is nil")
	}
	if cfg.MaxCommandLength <= 0 {
		cfg.MaxCommandLength = DefaultMaxCommandLength
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	return &Dispatcher{
		registry:    registry,
		services:    services,
		audit:       audit,
		rateLimiter: rateLimiter,
		cfg:         cfg,
	}, nil
}

// Dispatch processes one raw input line from a player's transport. Every
// outcome, success or failure, is reported to the player as a
// command_response event; the returned error mirrors what the player was
// told and exists for callers that want to observe failures.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, raw string) error {
	normalized, err := Normalize(raw, d.cfg.MaxCommandLength)
	if err != nil {
		d.respondError(ctx, sess, err)
		RecordCommandExecution("(normalize)", StatusRejected)
		return err
	}
	if normalized == "" {
		err = ErrEmptyCommand()
		d.respondError(ctx, sess, err)
		RecordCommandExecution("(empty)", StatusRejected)
		return err
	}

	if d.rateLimiter != nil && !sess.IsAdmin {
		allowed, cooldownMs := d.rateLimiter.Allow(sess.SessionID)
		if !allowed {
			err = ErrRateLimited(cooldownMs)
			d.respondError(ctx, sess, err)
			RecordCommandExecution("(flood)", StatusRateLimited)
			return err
		}
	}

	d.services.Sessions.TouchActivity(sess.PlayerID)
	return d.dispatchText(ctx, sess, normalized, 0)
}

// dispatchText splits one command line into chain segments and runs each
// through the pipeline. Chains work the same whether typed directly or
// produced by an alias body. depth counts alias re-entries; it is the
// enforcement mechanism for the expansion cap, with the graph estimate as
// a pre-flight reject.
func (d *Dispatcher) dispatchText(ctx context.Context, sess *Session, text string, depth int) error {
	segments, err := SplitChain(text)
	if err != nil {
		d.respondError(ctx, sess, err)
		RecordCommandExecution("(chain)", StatusRejected)
		return err
	}
	if len(segments) == 0 {
		err = ErrEmptyCommand()
		d.respondError(ctx, sess, err)
		RecordCommandExecution("(empty)", StatusRejected)
		return err
	}

	var lastErr error
	for _, seg := range segments {
		normalized, normErr := Normalize(seg.Text, d.cfg.MaxCommandLength)
		if normErr != nil || normalized == "" {
			lastErr = normErr
			continue
		}
		segErr := d.dispatchSegment(ctx, sess, normalized, depth)
		lastErr = segErr

		// Chain operators: `&&` stops on first failure, `||` stops on
		// first success, `;` always continues.
		switch seg.Op {
		case OpAnd:
			if segErr != nil {
				return segErr
			}
		case OpOr:
			if segErr == nil {
				return nil
			}
		}
	}
	return lastErr
}

// dispatchSegment parses one chain segment, expanding a player alias at
// the head if present.
func (d *Dispatcher) dispatchSegment(ctx context.Context, sess *Session, text string, depth int) error {
	head, trailing := splitFirstWord(text)
	headLower := strings.ToLower(head)

	if !IsKnownHead(headLower) && d.services.Aliases != nil {
		if body, ok := d.services.Aliases.Resolve(ctx, sess.PlayerName, headLower); ok {
			return d.expandAlias(ctx, sess, headLower, body, trailing, depth)
		}
	}

	cmd, err := Parse(text)
	if err != nil {
		d.respondError(ctx, sess, err)
		RecordCommandExecution(headLower, StatusRejected)
		return err
	}

	return d.execute(ctx, sess, cmd)
}

// expandAlias substitutes the alias body for the head word and re-enters
// the pipeline, splitting chained bodies into segments. The stored bundle
// is cycle-free by construction (Add rejects cycles), so the graph checks
// here defend against stale caches and corrupt loads.
func (d *Dispatcher) expandAlias(ctx context.Context, sess *Session, name, body, trailing string, depth int) error {
	if depth >= MaxExpansionDepth {
		err := ErrAliasDepthExceeded(depth, MaxExpansionDepth)
		d.respondError(ctx, sess, err)
		RecordCommandExecution(name, StatusRejected)
		return err
	}

	graph := d.services.Aliases.Graph(ctx, sess.PlayerName)
	if cycle := graph.DetectCycle(name); cycle != nil {
		err := ErrAliasCycle(cycle)
		d.respondError(ctx, sess, err)
		RecordCommandExecution(name, StatusRejected)
		return err
	}
	if est := graph.ExpansionDepth(name); est > MaxExpansionDepth {
		err := ErrAliasDepthExceeded(est, MaxExpansionDepth)
		d.respondError(ctx, sess, err)
		RecordCommandExecution(name, StatusRejected)
		return err
	}

	RecordAliasExpansion(name)

	expanded := body
	if trailing != "" {
		expanded = body + " " + trailing
	}
	return d.dispatchText(ctx, sess, expanded, depth+1)
}

// execute runs a parsed command through its registered handler.
func (d *Dispatcher) execute(ctx context.Context, sess *Session, cmd Command) (err error) {
	name := string(cmd.Verb)
	start := time.Now()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("player.id", sess.PlayerID.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	entry, ok := d.registry.Get(cmd.Verb)
	if !ok {
		err = ErrUnknownCommand(name)
		d.respondError(ctx, sess, err)
		RecordCommandExecution(name, StatusRejected)
		return err
	}

	if entry.AdminOnly && !sess.IsAdmin {
		err = ErrUnknownCommand(cmd.InvokedAs)
		d.respondError(ctx, sess, err)
		RecordCommandExecution(name, StatusRejected)
		return err
	}

	if entry.CancelsRest {
		d.services.Sessions.CancelRest(sess.PlayerID, name)
	}

	result, err := d.runHandler(ctx, entry, cmd, sess)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() != "" {
			status = StatusRejected
		}
	}
	RecordCommandExecution(name, status)
	RecordCommandDuration(name, time.Since(start))

	if d.audit != nil && d.audit.Sensitive(cmd.Verb) {
		d.recordAudit(ctx, sess, cmd, result, err)
	}

	if err != nil {
		d.respondError(ctx, sess, err)
		return err
	}

	if result != nil && result.Text != "" {
		d.respond(ctx, sess, result.Text)
	}
	if result != nil && result.Logout {
		d.closeTransports(sess)
	}
	return nil
}

// runHandler invokes the handler under the command deadline with a panic
// fence. A panic is logged with full context and surfaces to the player
// as the generic failure message.
func (d *Dispatcher) runHandler(ctx context.Context, entry Entry, cmd Command, sess *Session) (result *Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CommandTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("command handler panicked",
				"command", string(cmd.Verb),
				"player_id", sess.PlayerID.String(),
				"panic", r,
			)
			result = nil
			err = oops.With("command", string(cmd.Verb)).Errorf("handler panic: %v", r)
		}
	}()

	result, err = entry.Handler(ctx, cmd, sess, d.services)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout(string(cmd.Verb))
	}
	return result, err
}

// recordAudit builds and appends the structured audit record for a
// security-sensitive command.
func (d *Dispatcher) recordAudit(ctx context.Context, sess *Session, cmd Command, result *Result, cmdErr error) {
	summary := ""
	switch {
	case cmdErr != nil:
		summary = PlayerMessage(cmdErr)
	case result != nil:
		summary = result.Text
	}
	d.audit.Record(ctx, AuditRecord{
		Timestamp:     time.Now().UTC(),
		PlayerID:      sess.PlayerID,
		PlayerName:    sess.PlayerName,
		Command:       string(cmd.Verb),
		Success:       cmdErr == nil,
		ResultSummary: summary,
		SessionID:     sess.SessionID,
		Metadata: map[string]any{
			"invoked_as": cmd.InvokedAs,
			"room_id":    sess.RoomID,
		},
	})
}

func (d *Dispatcher) respond(ctx context.Context, sess *Session, text string) {
	d.services.Events.SendPersonal(ctx, sess.PlayerID, core.EventCommandResponse, map[string]any{
		"message": text,
	})
}

// respondError maps an error to its player-presentable message. Internal
// detail stays in the log.
func (d *Dispatcher) respondError(ctx context.Context, sess *Session, err error) {
	if oopsErr, ok := oops.AsOops(err); !ok || oopsErr.Code() == "" {
		slog.Error("command failed",
			"player_id", sess.PlayerID.String(),
			"error", err,
		)
	}
	d.respond(ctx, sess, PlayerMessage(err))
}

// closeTransports force-closes the player's transports after a logout
// directive. The session was already marked intentional by the handler,
// so detach removes it without a grace period.
func (d *Dispatcher) closeTransports(sess *Session) {
	rec := d.services.Sessions.GetSession(sess.PlayerID)
	if rec == nil {
		return
	}
	for _, t := range rec.Transports {
		if err := t.Close("logout"); err != nil {
			slog.Debug("transport close on logout failed",
				"player_id", sess.PlayerID.String(),
				"transport_id", t.ID().String(),
				"error", err,
			)
		}
	}
}
