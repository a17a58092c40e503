// Package store provides SQLite-backed durable storage for verification runs.
//
// The log is append-only:
//   - Runs: one row per verify-registry invocation, keyed by a UUIDv7
//   - Issues: the run's issues in the order the verifier reported them
//
// Runs are ordered by seq, a logical clock assigned inside the insert
// transaction. Wall time is never stored or used for ordering.
//
// A registry is identified by its digest: the SHA-256 of the KCS-1 encoding
// of {"urls": [...]}, so two files with the same entries share a history.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Issues cascade with their run
package store
