// Package trace defines the record of one processed cycle and its
// content-addressed identity.
//
// Cycle records are what the engine journals and what golden scenario
// traces compare. Identity is computed over canonical JSON (sorted keys in
// UTF-16 order, NFC strings, no floats, no null) hashed with SHA-256 under a
// versioned domain prefix, so a cycle hashes the same on every run.
package trace
