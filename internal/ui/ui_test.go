package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/tasks"
	tu "github.com/desertthunder/decklog/internal/testing"
)

func TestMonitor(t *testing.T) {
	t.Run("forwards events in order", func(t *testing.T) {
		m := NewMonitor(4)
		m.OnTick(models.Tick{Number: 1})
		m.OnDiff(models.Diff{Tick: 1})
		m.OnNowPlaying(tu.Entry(1))
		m.OnScrobble(tu.Entry(1))

		want := []MsgKind{MsgTick, MsgDiff, MsgNowPlaying, MsgScrobble}
		for i, kind := range want {
			got := <-m.Events()
			if got.Kind() != kind {
				t.Errorf("event %d: expected kind %d, got %d", i, kind, got.Kind())
			}
		}
	})

	t.Run("drops when full", func(t *testing.T) {
		m := NewMonitor(1)
		m.OnTick(models.Tick{Number: 1})
		m.OnTick(models.Tick{Number: 2})
		if m.Dropped() != 1 {
			t.Errorf("expected 1 dropped, got %d", m.Dropped())
		}
	})

	t.Run("ignores events after close", func(t *testing.T) {
		m := NewMonitor(1)
		m.Close()
		m.Close()
		m.OnTick(models.Tick{Number: 1})
		if _, ok := <-m.Events(); ok {
			t.Error("expected closed channel")
		}
	})
}

func itemTitles(m *Model) []string {
	var titles []string
	for _, it := range m.entries.Items() {
		titles = append(titles, it.(entryItem).Title())
	}
	return titles
}

func TestModelUpdate(t *testing.T) {
	t.Run("mirrors added and changed entries", func(t *testing.T) {
		m := NewModel("/logs/session.dat", nil, nil)
		m.Update(diffMsg(models.Diff{Tick: 1, Size: 500, Total: 2, Added: tu.Entries(2)}))

		changed := tu.Entry(1)
		changed.Title = "Edited"
		m.Update(diffMsg(models.Diff{
			PrevTick: 1, Tick: 2, Size: 800, Total: 3,
			Changed: []models.Change{{Index: 1, Before: tu.Entry(1), After: changed}},
			Added:   []models.Entry{tu.Entry(2)},
		}))

		titles := itemTitles(m)
		if len(titles) != 3 {
			t.Fatalf("expected 3 items, got %v", titles)
		}
		if titles[1] != "Artist 1 - Edited" {
			t.Errorf("expected changed entry, got %q", titles[1])
		}
		if m.entries.Index() != 2 {
			t.Errorf("expected selection to follow the newest entry, got %d", m.entries.Index())
		}
	})

	t.Run("reset reloads entries", func(t *testing.T) {
		m := NewModel("", nil, nil)
		m.Update(diffMsg(models.Diff{Tick: 1, Added: tu.Entries(3)}))
		m.Update(nowPlayingMsg(tu.Entry(2)))
		m.Update(diffMsg(models.Diff{Tick: 2, Reset: true, Reloaded: []models.Entry{tu.Entry(7)}}))

		if titles := itemTitles(m); len(titles) != 1 || titles[0] != "Artist 7 - Track 7" {
			t.Errorf("unexpected items after reset %v", titles)
		}
		if m.nowPlaying != nil || m.resets != 1 {
			t.Errorf("expected now playing cleared and one reset, got %v %d", m.nowPlaying, m.resets)
		}
	})

	t.Run("failed scan keeps entries", func(t *testing.T) {
		m := NewModel("", nil, nil)
		m.Update(diffMsg(models.Diff{Tick: 1, Total: 2, Added: tu.Entries(2)}))
		m.Update(diffMsg(models.Diff{PrevTick: 1, Tick: 2, Failed: true}))

		if len(m.entries.Items()) != 2 || m.total != 2 {
			t.Errorf("expected previous entries kept")
		}
		if !strings.Contains(m.View(), "last scan incomplete") {
			t.Error("expected failure notice in view")
		}
	})

	t.Run("marks now playing and scrobbled", func(t *testing.T) {
		m := NewModel("", nil, nil)
		m.Update(diffMsg(models.Diff{Tick: 1, Added: tu.Entries(2)}))
		m.Update(scrobbleMsg(tu.Entry(0)))
		m.Update(nowPlayingMsg(tu.Entry(1)))

		titles := itemTitles(m)
		if !strings.HasPrefix(titles[0], markerScrobbled) || !strings.HasPrefix(titles[1], markerPlaying) {
			t.Errorf("unexpected markers %v", titles)
		}
	})

	t.Run("progress and tick render in header", func(t *testing.T) {
		m := NewModel("", nil, nil)
		m.Update(tickMsg(models.Tick{Number: 42}))
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.PhaseScanning, Tick: 42, Message: "Scanning session log (tick 42)..."}))

		view := m.View()
		if !strings.Contains(view, "42") || !strings.Contains(view, "Scanning session log") {
			t.Errorf("unexpected header %q", view)
		}
	})

	t.Run("quit key", func(t *testing.T) {
		m := NewModel("", nil, nil)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("closed event stream", func(t *testing.T) {
		m := NewModel("", nil, nil)
		msg := m.waitForEvent()()
		m.Update(msg)
		if !m.closed {
			t.Error("expected closed state")
		}
	})
}
