package tracker

import (
	"slices"

	"github.com/desertthunder/decklog/internal/models"
)

// IsReset reports whether cur cannot be a continuation of prev: the log lost entries or bytes.
func IsReset(prev, cur models.Snapshot) bool {
	return cur.Len() < prev.Len() || cur.Size < prev.Size
}

// Compare returns the entries added and changed between prev and cur.
//
// A reset yields a Diff with Reset set and the current entries in Reloaded; removals are never reported.
func Compare(prev, cur models.Snapshot) models.Diff {
	d := models.Diff{PrevTick: prev.Tick, Tick: cur.Tick, Size: cur.Size, Total: cur.Len()}
	if IsReset(prev, cur) {
		d.Reset = true
		d.Reloaded = slices.Clone(cur.Entries)
		return d
	}

	for i, before := range prev.Entries {
		after := cur.Entries[i]
		if !before.Equal(after) {
			d.Changed = append(d.Changed, models.Change{Index: i, Before: before, After: after})
		}
	}

	if cur.Len() > prev.Len() {
		d.Added = slices.Clone(cur.Entries[prev.Len():])
	}
	return d
}
