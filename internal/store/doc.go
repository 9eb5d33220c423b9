// Package store provides SQLite-backed durable storage for solve logs.
//
// The store is an append-only log with:
//   - Solves: one row per cascade, with the stack, settings and command
//     stored as canonical JSON next to their content hashes
//   - Levels: the per-level reports of each solve
//   - Trace: the state transitions recorded during each solve
//
// # Ordering
//
// Solves are numbered with a logical seq assigned inside the write
// transaction, never with timestamps. Every list query orders by
// seq ASC, id ASC COLLATE BINARY so results are identical across runs.
//
// # Replay
//
// A stored solve carries everything needed to run it again: the stack, the
// settings and the solution hash. ReplaySolves re-runs each one through a
// caller-supplied solver and compares hashes, which is how non-determinism
// is detected.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The solver core never imports this package; only the CLI records solves.
package store
