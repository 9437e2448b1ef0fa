// Package session describes the DJ software's session log and turns its bytes into snapshots.
//
// A session log is a flat sequence of chunks:
//
//	vrsn  leaf       format version, NUL-terminated
//	oent  container  one per logged track; holds one or more adat revisions
//	  adat  leaf     the track fields, last revision wins
//
// Any other tag parses as an opaque leaf and is skipped by [Scan].
package session
