package tasks

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
)

// TickObserver is notified once per scheduler cycle.
type TickObserver interface {
	OnTick(tick models.Tick)
}

// DiffObserver receives every Diff, including empty and failed ones.
type DiffObserver interface {
	OnDiff(diff models.Diff)
}

// NowPlayingObserver is notified once per now-playing transition.
type NowPlayingObserver interface {
	OnNowPlaying(entry models.Entry)
}

// ScrobbleObserver is notified at most once per entry.
type ScrobbleObserver interface {
	OnScrobble(entry models.Entry)
}

// TickFunc adapts a function to [TickObserver].
type TickFunc func(models.Tick)

func (f TickFunc) OnTick(tick models.Tick) { f(tick) }

// DiffFunc adapts a function to [DiffObserver].
type DiffFunc func(models.Diff)

func (f DiffFunc) OnDiff(diff models.Diff) { f(diff) }

// NowPlayingFunc adapts a function to [NowPlayingObserver].
type NowPlayingFunc func(models.Entry)

func (f NowPlayingFunc) OnNowPlaying(entry models.Entry) { f(entry) }

// ScrobbleFunc adapts a function to [ScrobbleObserver].
type ScrobbleFunc func(models.Entry)

func (f ScrobbleFunc) OnScrobble(entry models.Entry) { f(entry) }

// Subscription identifies one registered observer across all lists it joined.
type Subscription uint64

type subscriber[T any] struct {
	id       Subscription
	observer T
}

// Bus holds the four ordered observer lists.
type Bus struct {
	mu         sync.Mutex
	publishing atomic.Int32
	nextID     Subscription
	logger     *log.Logger

	ticks      []subscriber[TickObserver]
	diffs      []subscriber[DiffObserver]
	nowPlaying []subscriber[NowPlayingObserver]
	scrobbles  []subscriber[ScrobbleObserver]
}

// NewBus creates an empty [Bus]. Observer panics are recovered and logged to logger.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers observer on every list whose interface it implements, in registration order.
func (b *Bus) Subscribe(observer any) (Subscription, error) {
	if b.publishing.Load() > 0 {
		return 0, fmt.Errorf("%w: subscribe", shared.ErrSubscribeDuringPublish)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	joined := false

	if o, ok := observer.(TickObserver); ok {
		b.ticks = append(b.ticks, subscriber[TickObserver]{id, o})
		joined = true
	}
	if o, ok := observer.(DiffObserver); ok {
		b.diffs = append(b.diffs, subscriber[DiffObserver]{id, o})
		joined = true
	}
	if o, ok := observer.(NowPlayingObserver); ok {
		b.nowPlaying = append(b.nowPlaying, subscriber[NowPlayingObserver]{id, o})
		joined = true
	}
	if o, ok := observer.(ScrobbleObserver); ok {
		b.scrobbles = append(b.scrobbles, subscriber[ScrobbleObserver]{id, o})
		joined = true
	}

	if !joined {
		return 0, fmt.Errorf("%w: %T implements no observer interface", shared.ErrInvalidArgument, observer)
	}
	return id, nil
}

// Unsubscribe removes the observer registered as id from every list.
func (b *Bus) Unsubscribe(id Subscription) error {
	if b.publishing.Load() > 0 {
		return fmt.Errorf("%w: unsubscribe", shared.ErrSubscribeDuringPublish)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	before := len(b.ticks) + len(b.diffs) + len(b.nowPlaying) + len(b.scrobbles)
	b.ticks = without(b.ticks, id)
	b.diffs = without(b.diffs, id)
	b.nowPlaying = without(b.nowPlaying, id)
	b.scrobbles = without(b.scrobbles, id)

	if before == len(b.ticks)+len(b.diffs)+len(b.nowPlaying)+len(b.scrobbles) {
		return fmt.Errorf("%w: subscription %d", shared.ErrNotFound, id)
	}
	return nil
}

func without[T any](subs []subscriber[T], id Subscription) []subscriber[T] {
	return slices.DeleteFunc(subs, func(s subscriber[T]) bool { return s.id == id })
}

// Len returns the number of observers on each list.
func (b *Bus) Len() (ticks, diffs, nowPlaying, scrobbles int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ticks), len(b.diffs), len(b.nowPlaying), len(b.scrobbles)
}

func (b *Bus) PublishTick(tick models.Tick) {
	b.mu.Lock()
	subs := slices.Clone(b.ticks)
	b.mu.Unlock()
	publish(b, "tick", subs, func(o TickObserver) { o.OnTick(tick) })
}

func (b *Bus) PublishDiff(diff models.Diff) {
	b.mu.Lock()
	subs := slices.Clone(b.diffs)
	b.mu.Unlock()
	publish(b, "diff", subs, func(o DiffObserver) { o.OnDiff(diff) })
}

func (b *Bus) PublishNowPlaying(entry models.Entry) {
	b.mu.Lock()
	subs := slices.Clone(b.nowPlaying)
	b.mu.Unlock()
	publish(b, "now_playing", subs, func(o NowPlayingObserver) { o.OnNowPlaying(entry) })
}

func (b *Bus) PublishScrobble(entry models.Entry) {
	b.mu.Lock()
	subs := slices.Clone(b.scrobbles)
	b.mu.Unlock()
	publish(b, "scrobble", subs, func(o ScrobbleObserver) { o.OnScrobble(entry) })
}

// publish delivers to subs in order; a panicking observer is logged and skipped.
func publish[T any](b *Bus, event string, subs []subscriber[T], deliver func(T)) {
	b.publishing.Add(1)
	defer b.publishing.Add(-1)

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil && b.logger != nil {
					b.logger.Error("observer panicked", "event", event, "subscription", s.id, "panic", r)
				}
			}()
			deliver(s.observer)
		}()
	}
}
