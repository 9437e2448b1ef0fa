// Package repositories implements SQLite persistence for play history.
//
// Repositories use atomic sequence generation for human-readable ordering and soft deletes via
// deleted_at timestamps; deleted records are excluded from queries by default.
//
// Key Implementations:
//   - [PlayRepository] : now-playing and scrobble history per session log
//   - [HistoryRecorder] : bus observer writing plays as the tracker reports them
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
