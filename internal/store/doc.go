// Package store provides SQLite-backed durable storage for EIGEN dispatch traces.
//
// The store implements an append-only log with:
//   - Sends: one row per traced dispatch (send, super or methodMissing fallback)
//   - Replies: how each send finished (ok, missing or error), one per send
//
// # Critical Patterns
//
// Logical Time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - A run token groups the sends of one recorded run
//
// Deterministic Query Results:
//   - All queries order by seq ASC, id ASC COLLATE BINARY
//   - Identical runs read back identically
//
// Idempotent Writes:
//   - IDs are content-addressed (ir.SendID, ir.ReplyID)
//   - Rewriting the same record is a no-op via ON CONFLICT DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: A reply must reference a stored send
//
// Recorder adapts the store to engine.Tracer so a live engine can stream its
// dispatch into a run.
package store
