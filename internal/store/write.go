package store

import (
	"context"
	"fmt"

	"github.com/roach88/changeflow/internal/trace"
)

// BeginSession records a session. Re-recording the same id is a no-op.
func (s *Store) BeginSession(ctx context.Context, sess trace.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, config_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Label, sess.ConfigHash)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// RecordCycle appends a cycle to its session. The row id is the cycle's
// content hash, so recording the same cycle twice is a no-op. The session
// must already exist.
func (s *Store) RecordCycle(ctx context.Context, c trace.Cycle) error {
	id, err := c.ID()
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	user, err := marshalList(c.User)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	system, err := marshalList(c.System)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	calls, err := marshalList(c.Platform)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cycles
		(id, session_id, seq, source, user_changes, system_changes, handled, forwarded, severity, severity_level, platform_calls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		c.Session,
		c.Seq,
		c.Source,
		user,
		system,
		c.Handled,
		c.Forwarded,
		c.Severity.String(),
		int(c.Severity),
		calls,
	)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}
