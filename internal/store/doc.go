// Package store provides the SQLite cycle journal.
//
// Every engine session is recorded as a row in sessions, and every
// processed cycle as a row in cycles keyed by its content-addressed ID.
// Writes are idempotent: re-recording a cycle is a no-op.
//
// # Ordering
//
// Cycles are read back ORDER BY seq ASC, id ASC COLLATE BINARY so that a
// journal always prints the same way. seq is the engine's logical cycle
// counter, never a wall-clock timestamp.
//
// # Versions
//
// schema.sql creates the original tables. Later additions are migrations
// keyed by PRAGMA user_version, so a journal written by an older build is
// upgraded the first time it is opened.
//
// # Concurrent inspection
//
// The journal runs in WAL mode, so "changeflow trace" can read a file while
// a run is still appending to it. Each Store holds a single connection
// because one engine is the only writer.
package store
