package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting the journal depends on. Value is what
// PRAGMA name reads back once applied.
type pragma struct {
	name, set, value string
}

// journalPragmas let "changeflow trace" read a journal while a run is
// still appending cycles, and make cycles.session_id a checked reference.
var journalPragmas = []pragma{
	{name: "journal_mode", set: "WAL", value: "wal"},
	{name: "synchronous", set: "NORMAL", value: "1"},
	{name: "busy_timeout", set: "5000", value: "5000"},
	{name: "foreign_keys", set: "ON", value: "1"},
}

// migration upgrades a journal written by an older changeflow to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order; schema.sql always holds the version 0 tables.
var migrations = []migration{
	// Cycle listing with --min filters on severity within one session.
	{version: 1, stmt: `CREATE INDEX IF NOT EXISTS idx_cycles_session_severity
		ON cycles(session_id, severity_level)`},
}

// currentSchemaVersion is the user_version of a fully migrated journal.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is a SQLite cycle journal. It implements the engine's Journal
// interface for writing and serves the trace command's queries.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating the file and its tables if
// needed and upgrading older journals in place. Opening the same path
// repeatedly is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// The engine is the journal's only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range journalPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return migrate(db)
}

// migrate applies every migration newer than the journal's user_version,
// each in its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// checkPragmas reports the first journal pragma that does not read back
// as configured.
func (s *Store) checkPragmas() error {
	for _, p := range journalPragmas {
		var got string
		if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", p.name)).Scan(&got); err != nil {
			return fmt.Errorf("read pragma %s: %w", p.name, err)
		}
		if got != p.value {
			return fmt.Errorf("pragma %s = %q, want %q", p.name, got, p.value)
		}
	}
	return nil
}
