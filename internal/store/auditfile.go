// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/command"
)

// CodeAuditIO marks audit file sink failures.
const CodeAuditIO = "AUDIT_IO_FAILED"

// JSONLAuditSink appends audit records as one JSON object per line to a
// local file. It is the always-available sink; the postgres sink is
// layered on top when a database is configured.
type JSONLAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLAuditSink opens (appending) the audit file at path.
func NewJSONLAuditSink(path string) (*JSONLAuditSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, oops.Code(CodeAuditIO).With("path", path).Wrapf(err, "open audit file")
	}
	return &JSONLAuditSink{file: f}, nil
}

// Append writes one record as a JSON line.
func (s *JSONLAuditSink) Append(_ context.Context, rec command.AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code(CodeAuditIO).Wrapf(err, "encode audit record")
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return oops.Code(CodeAuditIO).Wrapf(err, "append audit record")
	}
	return nil
}

// Close closes the underlying file.
func (s *JSONLAuditSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
