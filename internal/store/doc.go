// Package store provides SQLite-backed history of testcli runs.
//
// Each invocation of `testcli run --db` records:
//   - Runs: one row per suite run, keyed by a UUIDv7 run ID
//   - Case results: one row per fixture case, ordered by seq within a run
//
// A run and its case results are written in a single transaction, so a
// crashed run leaves no partial history.
//
// # Ordering
//
// Runs are listed newest first by started_at, then by ID. UUIDv7 IDs sort
// by creation time, which keeps runs started within the same second in
// order. Case results always come back in seq order.
//
// Prune keeps the newest N runs; deleting a run cascades to its case
// results.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while a run is being recorded
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
