package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/decklog/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps [models.Entry] to implement [list.Item].
type entryItem struct {
	entry  models.Entry
	marker string
}

func (i entryItem) FilterValue() string { return i.entry.String() }
func (i entryItem) Title() string {
	if i.marker != "" {
		return i.marker + " " + i.entry.String()
	}
	return i.entry.String()
}

func (i entryItem) Description() string {
	parts := []string{fmt.Sprintf("#%d", i.entry.Row), fmt.Sprintf("deck %d", i.entry.Deck)}
	if i.entry.BPM > 0 {
		parts = append(parts, fmt.Sprintf("%d bpm", i.entry.BPM))
	}
	if i.entry.Key != "" {
		parts = append(parts, i.entry.Key)
	}
	if i.entry.Album != "" {
		parts = append(parts, i.entry.Album)
	}
	if i.entry.Incomplete {
		parts = append(parts, "incomplete")
	}
	return strings.Join(parts, " • ")
}
