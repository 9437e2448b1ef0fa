// Package tracker compares successive snapshots of the session log.
//
// [Compare] is the pure snapshot delta. [Engine] layers now-playing and scrobble
// hysteresis on top of it; it owns the only state that survives between ticks besides the
// previous snapshot itself.
package tracker
