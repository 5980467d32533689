// Package repositories implements SQLite persistence for run history.
//
// [RunRepository] implements [models.Repository] for [*models.Run] and stores the per-track
// failures of each run in a child table that is removed with its run.
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
