package ui

import (
	"sync"
	"sync/atomic"

	"github.com/desertthunder/decklog/internal/models"
)

// Monitor forwards bus events to a [Model] through a buffered channel.
//
// Events are dropped, never blocked on, when the channel is full.
type Monitor struct {
	mu      sync.Mutex
	events  chan Msg
	closed  bool
	dropped atomic.Uint64
}

// NewMonitor creates a monitor whose channel holds up to buffer events.
func NewMonitor(buffer int) *Monitor {
	if buffer <= 0 {
		buffer = 64
	}
	return &Monitor{events: make(chan Msg, buffer)}
}

func (m *Monitor) OnTick(tick models.Tick)         { m.send(tickMsg(tick)) }
func (m *Monitor) OnDiff(diff models.Diff)         { m.send(diffMsg(diff)) }
func (m *Monitor) OnNowPlaying(entry models.Entry) { m.send(nowPlayingMsg(entry)) }
func (m *Monitor) OnScrobble(entry models.Entry)   { m.send(scrobbleMsg(entry)) }

// Events returns the channel a [Model] reads from.
func (m *Monitor) Events() <-chan Msg {
	return m.events
}

// Dropped returns how many events were discarded because the channel was full.
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}

// Close closes the event channel. Later events are discarded.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
}

func (m *Monitor) send(msg Msg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- msg:
	default:
		m.dropped.Add(1)
	}
}
