// Package storage records the outcome of every delivery attempt.
//
// Drivers:
//   - "file": JSON Lines appended to <path>.deliveries.jsonl
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// The journal is written only while the event directory lock is held, so a
// single writer is assumed per journal.
package storage
