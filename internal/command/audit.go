// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// AuditRecord is one append-only entry for a security-sensitive command.
// Command is the sanitized (normalized) input, never the raw bytes.
type AuditRecord struct {
	Timestamp     time.Time      `json:"timestamp"`
	PlayerID      uuid.UUID      `json:"player_id"`
	PlayerName    string         `json:"player_name"`
	Command       string         `json:"command"`
	Success       bool           `json:"success"`
	ResultSummary string         `json:"result_summary"`
	SessionID     ulid.ULID      `json:"session_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AuditSink appends audit records. Sinks must tolerate replays.
type AuditSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// sensitivePatterns classify verbs whose execution must be audited.
var sensitivePatterns = []string{
	"mute*",
	"unmute*",
	"add_admin",
	"teleport",
	"goto",
}

// Classifier decides which command variants are security-sensitive.
type Classifier struct {
	globs []glob.Glob
}

// NewClassifier compiles the builtin sensitive-command patterns plus any
// extras from configuration.
func NewClassifier(extra ...string) (*Classifier, error) {
	patterns := append(append([]string{}, sensitivePatterns...), extra...)
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return &Classifier{globs: globs}, nil
}

// Sensitive reports whether the verb requires an audit record.
func (c *Classifier) Sensitive(verb Verb) bool {
	for _, g := range c.globs {
		if g.Match(string(verb)) {
			return true
		}
	}
	return false
}

// AuditLog fans audit records out to its sinks. Sink failures are logged
// and never surface to the player.
type AuditLog struct {
	classifier *Classifier
	sinks      []AuditSink
}

// NewAuditLog creates an audit log over the given sinks.
func NewAuditLog(classifier *Classifier, sinks ...AuditSink) *AuditLog {
	return &AuditLog{classifier: classifier, sinks: sinks}
}

// Sensitive reports whether the verb requires auditing.
func (l *AuditLog) Sensitive(verb Verb) bool {
	return l.classifier.Sensitive(verb)
}

// Record appends the record to every sink.
func (l *AuditLog) Record(ctx context.Context, rec AuditRecord) {
	for _, sink := range l.sinks {
		if err := sink.Append(ctx, rec); err != nil {
			slog.Error("audit sink append failed",
				"player_id", rec.PlayerID.String(),
				"command", rec.Command,
				"error", err,
			)
			RecordAuditFailure()
		}
	}
}
