package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgDiff
	MsgNowPlaying
	MsgScrobble
	MsgProgressUpdate
	MsgClosed
)

// Kind returns the message type.
func (m Msg) Kind() MsgKind { return m.kind }

// tickMsg is the constructor for [MsgTick]
func tickMsg(tick models.Tick) Msg {
	return Msg{kind: MsgTick, data: tick}
}

// diffMsg is the constructor for [MsgDiff]
func diffMsg(diff models.Diff) Msg {
	return Msg{kind: MsgDiff, data: diff}
}

// nowPlayingMsg is the constructor for [MsgNowPlaying]
func nowPlayingMsg(entry models.Entry) Msg {
	return Msg{kind: MsgNowPlaying, data: entry}
}

// scrobbleMsg is the constructor for [MsgScrobble]
func scrobbleMsg(entry models.Entry) Msg {
	return Msg{kind: MsgScrobble, data: entry}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// closedMsg is the constructor for [MsgClosed]
func closedMsg() Msg {
	return Msg{kind: MsgClosed}
}
