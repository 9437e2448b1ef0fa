package tracker

import (
	"fmt"
	"time"

	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
)

// Engine applies now-playing and scrobble hysteresis to successive snapshots.
//
// The candidate is the last entry of the newest snapshot. It becomes now playing after
// NowPlayingTicks consecutive ticks and is scrobbled once its now-playing time meets the
// configured policy, even while a newer candidate is still pending. Scrobbles are remembered by identity for the life of the engine.
// An Engine is not safe for concurrent use; the scheduler owns it.
type Engine struct {
	cfg shared.TrackerConfig

	candidate      models.EntryKey
	candidateEntry models.Entry
	candidateTicks int
	hasCandidate   bool

	nowPlaying      models.Entry
	nowPlayingKey   models.EntryKey
	nowPlayingSince models.Tick
	hasNowPlaying   bool

	scrobbled map[models.EntryKey]struct{}
}

// NewEngine validates cfg and returns an idle engine.
func NewEngine(cfg shared.TrackerConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	return &Engine{cfg: cfg, scrobbled: make(map[models.EntryKey]struct{})}, nil
}

// Step compares prev with cur and advances the hysteresis counters by one tick.
//
// NowPlaying and Scrobbled on the returned Diff are set only on the tick the transition
// happens. Call Step once per successful scan.
func (e *Engine) Step(prev, cur models.Snapshot, tick models.Tick) models.Diff {
	d := Compare(prev, cur)
	if d.Reset {
		e.clear()
		return d
	}

	last, ok := cur.Last()
	if !ok {
		e.hasCandidate = false
		e.candidateTicks = 0
		return d
	}

	key := last.Identity()
	if e.hasCandidate && e.candidate == key {
		e.candidateTicks++
	} else {
		e.candidate = key
		e.candidateTicks = 1
		e.hasCandidate = true
	}
	e.candidateEntry = last

	if e.hasNowPlaying && e.nowPlayingKey == key {
		e.nowPlaying = last
	}

	// The outgoing entry gets its final check before a new candidate takes over.
	e.scrobble(tick, &d)

	if e.candidateTicks >= e.cfg.NowPlayingTicks && (!e.hasNowPlaying || e.nowPlayingKey != key) {
		e.nowPlaying = last
		e.nowPlayingKey = key
		e.nowPlayingSince = tick
		e.hasNowPlaying = true

		np := last
		d.NowPlaying = &np
	}
	return d
}

// scrobble marks the now-playing entry scrobbled on d once it meets the policy threshold,
// whether or not it is still the last entry.
func (e *Engine) scrobble(tick models.Tick, d *models.Diff) {
	if !e.hasNowPlaying {
		return
	}
	if _, done := e.scrobbled[e.nowPlayingKey]; done {
		return
	}
	if e.shouldScrobble(tick) {
		e.scrobbled[e.nowPlayingKey] = struct{}{}
		s := e.nowPlaying
		d.Scrobbled = &s
	}
}

func (e *Engine) shouldScrobble(tick models.Tick) bool {
	elapsedTicks := tick.Number - e.nowPlayingSince.Number
	byTicks := elapsedTicks >= uint64(e.cfg.ScrobbleTicks)

	if e.cfg.ScrobblePolicy != shared.PolicyFraction || e.nowPlaying.Length <= 0 {
		return byTicks
	}

	threshold := time.Duration(e.cfg.ScrobbleFraction * float64(e.nowPlaying.Duration()))
	return tick.Time.Sub(e.nowPlayingSince.Time) >= threshold
}

func (e *Engine) clear() {
	e.hasCandidate = false
	e.candidateTicks = 0
	e.candidateEntry = models.Entry{}
	e.hasNowPlaying = false
	e.nowPlaying = models.Entry{}
}

// NowPlaying returns the current now-playing entry.
func (e *Engine) NowPlaying() (models.Entry, bool) {
	return e.nowPlaying, e.hasNowPlaying
}

// Candidate returns the current candidate and how many consecutive ticks it has been last.
func (e *Engine) Candidate() (models.Entry, int, bool) {
	return e.candidateEntry, e.candidateTicks, e.hasCandidate
}

// Scrobbled reports whether an entry with key has already been scrobbled.
func (e *Engine) Scrobbled(key models.EntryKey) bool {
	_, ok := e.scrobbled[key]
	return ok
}
