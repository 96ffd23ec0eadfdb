package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/trace"
)

// Sessions returns every session in the order it was begun.
func (s *Store) Sessions(ctx context.Context) ([]trace.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, config_hash
		FROM sessions
		ORDER BY ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []trace.Session{}
	for rows.Next() {
		var sess trace.Session
		if err := rows.Scan(&sess.ID, &sess.Label, &sess.ConfigHash); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently begun session.
// Returns sql.ErrNoRows if the journal is empty.
func (s *Store) LatestSession(ctx context.Context) (trace.Session, error) {
	var sess trace.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, config_hash
		FROM sessions
		ORDER BY ordinal DESC
		LIMIT 1
	`).Scan(&sess.ID, &sess.Label, &sess.ConfigHash)
	if err != nil {
		return trace.Session{}, err
	}
	return sess, nil
}

// Cycles returns the cycles of a session whose severity is at least min,
// ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Cycles(ctx context.Context, sessionID string, min severity.Severity) ([]trace.Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, source, user_changes, system_changes, handled, forwarded, severity, platform_calls
		FROM cycles
		WHERE session_id = ? AND severity_level >= ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID, int(min))
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []trace.Cycle{}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return cycles, nil
}

// CountCycles returns how many cycles a session has.
func (s *Store) CountCycles(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cycles: %w", err)
	}
	return n, nil
}

func scanCycle(rows *sql.Rows) (trace.Cycle, error) {
	var (
		c                   trace.Cycle
		user, system, calls string
		sev                 string
	)
	if err := rows.Scan(&c.Session, &c.Seq, &c.Source, &user, &system, &c.Handled, &c.Forwarded, &sev, &calls); err != nil {
		return trace.Cycle{}, fmt.Errorf("scan cycle: %w", err)
	}

	var err error
	if c.User, err = unmarshalList(user); err != nil {
		return trace.Cycle{}, fmt.Errorf("cycle %d user changes: %w", c.Seq, err)
	}
	if c.System, err = unmarshalList(system); err != nil {
		return trace.Cycle{}, fmt.Errorf("cycle %d system changes: %w", c.Seq, err)
	}
	if c.Platform, err = unmarshalList(calls); err != nil {
		return trace.Cycle{}, fmt.Errorf("cycle %d platform calls: %w", c.Seq, err)
	}
	if c.Severity, err = severity.Parse(sev); err != nil {
		return trace.Cycle{}, fmt.Errorf("cycle %d: %w", c.Seq, err)
	}
	return c, nil
}
