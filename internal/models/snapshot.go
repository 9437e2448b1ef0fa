package models

import "time"

// Tick is one cycle of the scan loop. Numbers start at 1 and only increase.
type Tick struct {
	Number uint64    `json:"number"`
	Time   time.Time `json:"time"`
}

// Snapshot is every entry decoded from one full scan of the log.
//
// A snapshot is never modified after construction; a newer scan supersedes it.
type Snapshot struct {
	Tick    uint64  `json:"tick"`
	Size    int     `json:"size"` // Size is the byte length of the log when scanned
	Entries []Entry `json:"entries"`
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Last returns the most recently appended entry.
func (s Snapshot) Last() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// Change is an entry at a position shared by two snapshots whose content differs.
type Change struct {
	Index  int   `json:"index"`
	Before Entry `json:"before"`
	After  Entry `json:"after"`
}

// Diff is the delta between two snapshots.
//
// NowPlaying and Scrobbled are copies, set only on the tick the transition happens.
type Diff struct {
	PrevTick   uint64   `json:"prev_tick"`
	Tick       uint64   `json:"tick"`
	Size       int      `json:"size"`  // Size of the log at Tick, 0 when the scan failed
	Total      int      `json:"total"` // Total entries at Tick
	Added      []Entry  `json:"added,omitempty"`
	Changed    []Change `json:"changed,omitempty"`
	Reset      bool     `json:"reset,omitempty"`
	Reloaded   []Entry  `json:"reloaded,omitempty"` // Reloaded holds the entries after a reset, for observers that rebuild state
	Failed     bool     `json:"failed,omitempty"` // Failed marks a tick whose scan did not complete
	NowPlaying *Entry   `json:"now_playing,omitempty"`
	Scrobbled  *Entry   `json:"scrobbled,omitempty"`
}

// Empty reports whether the diff carries no added, changed, or reset information.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && !d.Reset
}
