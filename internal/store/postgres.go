// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/command"
)

// CodeAuditDB marks postgres audit sink failures.
const CodeAuditDB = "AUDIT_DB_FAILED"

// auditExecer is the slice of pgxpool the sink needs; pgxmock satisfies
// it for unit tests.
type auditExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGAuditSink appends audit records to the audit_log table. Records are
// keyed by (session_id, timestamp, command); a unique violation on
// insert means a replayed record and is swallowed.
type PGAuditSink struct {
	pool  auditExecer
	close func()
}

// NewPGAuditSink connects a pool to dsn and returns the sink. The
// audit_log schema must already be applied via the migrator.
func NewPGAuditSink(ctx context.Context, dsn string) (*PGAuditSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code(CodeAuditDB).Wrapf(err, "connect audit database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code(CodeAuditDB).Wrapf(err, "ping audit database")
	}
	return &PGAuditSink{pool: pool, close: pool.Close}, nil
}

// NewPGAuditSinkWithPool wraps an existing pool-shaped executor. Used by
// tests with pgxmock.
func NewPGAuditSinkWithPool(pool auditExecer) *PGAuditSink {
	return &PGAuditSink{pool: pool, close: func() {}}
}

const insertAuditSQL = `INSERT INTO audit_log
	(recorded_at, player_id, player_name, command, success, result_summary, session_id, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Append inserts one audit record. Replays are tolerated.
func (s *PGAuditSink) Append(ctx context.Context, rec command.AuditRecord) error {
	var metadata []byte
	if rec.Metadata != nil {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return oops.Code(CodeAuditDB).Wrapf(err, "encode audit metadata")
		}
		metadata = data
	}

	_, err := s.pool.Exec(ctx, insertAuditSQL,
		rec.Timestamp,
		rec.PlayerID.String(),
		rec.PlayerName,
		rec.Command,
		rec.Success,
		rec.ResultSummary,
		rec.SessionID.String(),
		metadata,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Same record appended twice; the first insert won.
			return nil
		}
		return oops.Code(CodeAuditDB).
			With("player_id", rec.PlayerID.String()).
			With("command", rec.Command).
			Wrapf(err, "insert audit record")
	}
	return nil
}

// Close releases the connection pool.
func (s *PGAuditSink) Close() {
	s.close()
}
