package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/tasks"
	"github.com/dustin/go-humanize"
)

const (
	markerPlaying   = "▶"
	markerScrobbled = "✓"
)

// Model represents the monitor state.
type Model struct {
	sessionPath  string
	events       <-chan Msg
	progressChan <-chan tasks.ProgressUpdate
	width        int
	height       int
	entries      list.Model
	tick         models.Tick
	size         int
	total        int
	failed       bool
	resets       int
	nowPlaying   *models.Entry
	lastScrobble *models.Entry
	scrobbled    map[models.EntryKey]bool
	progress     tasks.ProgressUpdate
	follow       bool
	closed       bool
	help         help.Model
	keys         keyMap
}

// NewModel creates a monitor reading bus events from events and scheduler phases from progress.
//
// progress may be nil.
func NewModel(sessionPath string, events <-chan Msg, progress <-chan tasks.ProgressUpdate) *Model {
	entries := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	entries.Title = "Session"
	entries.SetFilteringEnabled(false)
	entries.SetShowHelp(false)

	return &Model{
		sessionPath:  sessionPath,
		events:       events,
		progressChan: progress,
		entries:      entries,
		scrobbled:    make(map[models.EntryKey]bool),
		follow:       true,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts listening for bus events and scheduler progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entries.SetSize(max(msg.Width-4, 0), max(msg.Height-10, 0))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		m.tick = msg.data.(models.Tick)
	case MsgDiff:
		m.applyDiff(msg.data.(models.Diff))
	case MsgNowPlaying:
		e := msg.data.(models.Entry)
		m.nowPlaying = &e
		m.refreshMarkers()
	case MsgScrobble:
		e := msg.data.(models.Entry)
		m.lastScrobble = &e
		m.scrobbled[e.Identity()] = true
		m.refreshMarkers()
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()
	case MsgClosed:
		m.closed = true
		return m, nil
	}
	return m, m.waitForEvent()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.top):
		m.follow = false
		m.entries.Select(0)
		return m, nil
	case key.Matches(msg, m.keys.bottom):
		m.follow = true
		m.selectLast()
		return m, nil
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		m.follow = false
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	if m.entries.Index() == len(m.entries.Items())-1 {
		m.follow = true
	}
	return m, cmd
}

// applyDiff mirrors the scheduler's snapshot into the list.
func (m *Model) applyDiff(d models.Diff) {
	if d.Failed {
		m.failed = true
		return
	}
	m.failed = false
	m.size = d.Size
	m.total = d.Total

	if d.Reset {
		m.resets++
		m.nowPlaying = nil
		items := make([]list.Item, len(d.Reloaded))
		for i, e := range d.Reloaded {
			items[i] = m.item(e)
		}
		m.entries.SetItems(items)
	}

	for _, c := range d.Changed {
		if c.Index < len(m.entries.Items()) {
			m.entries.SetItem(c.Index, m.item(c.After))
		}
	}
	for _, e := range d.Added {
		m.entries.InsertItem(len(m.entries.Items()), m.item(e))
	}

	if m.follow {
		m.selectLast()
	}
}

func (m *Model) item(e models.Entry) entryItem {
	item := entryItem{entry: e}
	switch {
	case m.nowPlaying != nil && m.nowPlaying.Identity() == e.Identity():
		item.marker = markerPlaying
	case m.scrobbled[e.Identity()]:
		item.marker = markerScrobbled
	}
	return item
}

func (m *Model) refreshMarkers() {
	for i, it := range m.entries.Items() {
		if ei, ok := it.(entryItem); ok {
			m.entries.SetItem(i, m.item(ei.entry))
		}
	}
}

func (m *Model) selectLast() {
	if n := len(m.entries.Items()); n > 0 {
		m.entries.Select(n - 1)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		if m.events == nil {
			return closedMsg()
		}
		msg, ok := <-m.events
		if !ok {
			return closedMsg()
		}
		return msg
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progressChan == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

// View renders the header, the now-playing panel and the entry list.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("decklog • " + m.sessionPath))
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderPlaying())
	b.WriteString("\n\n")
	b.WriteString(m.entries.View())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	status := styles.ok.Render(m.progress.Message)
	switch {
	case m.closed:
		status = styles.warn.Render("scan loop stopped")
	case m.failed:
		status = styles.err.Render("last scan incomplete, showing previous snapshot")
	case m.progress.Message == "":
		status = styles.help.Render("waiting for first scan")
	}

	line := fmt.Sprintf("%s %d   %s %s   %s %d",
		styles.label.Render("tick"), m.tick.Number,
		styles.label.Render("log size"), humanize.Bytes(uint64(max(m.size, 0))),
		styles.label.Render("entries"), m.total)
	if m.resets > 0 {
		line += styles.warn.Render(fmt.Sprintf("   resets %d", m.resets))
	}
	return line + "\n" + status
}

func (m *Model) renderPlaying() string {
	playing := styles.help.Render("nothing yet")
	if m.nowPlaying != nil {
		playing = styles.ok.Render(markerPlaying + " " + m.nowPlaying.String())
	}
	scrobbled := styles.help.Render("nothing yet")
	if m.lastScrobble != nil {
		scrobbled = markerScrobbled + " " + m.lastScrobble.String()
	}
	return fmt.Sprintf("%s%s\n%s%s",
		styles.label.Render("now playing"), playing,
		styles.label.Render("last scrobble"), scrobbled)
}
