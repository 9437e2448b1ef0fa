// Package models defines the domain values produced by scanning a DJ session log and the entities persisted from them.
//
// The package contains two categories of types:
//
// 1. Scan values: immutable results of one pass over the log
//   - [Entry] : one logged track play (the typed record decoded from a chunk)
//   - [Snapshot] : every entry of the log at one tick, tagged with tick number and byte size
//   - [Diff] : the delta between two snapshots plus now-playing / scrobble classifications
//   - [Tick] : one cycle of the scan loop
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [Play] : a now-playing transition and its scrobble outcome
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
