package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/decklog/internal/shared"
)

// PlayStatus is the lifecycle stage of a [Play].
type PlayStatus string

const (
	PlayStatusPlaying   PlayStatus = "playing"
	PlayStatusScrobbled PlayStatus = "scrobbled"
)

// Play is a persisted now-playing transition. It is promoted to scrobbled when the
// tracker confirms the same entry was played long enough.
type Play struct {
	id          string
	sequence    int
	sessionPath string
	entry       Entry
	status      PlayStatus
	startedAt   time.Time
	scrobbledAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPlay creates a [Play] in the playing state for an entry read from sessionPath.
func NewPlay(sequence int, sessionPath string, entry Entry, startedAt time.Time) *Play {
	now := time.Now()
	return &Play{
		sequence:    sequence,
		sessionPath: sessionPath,
		entry:       entry,
		status:      PlayStatusPlaying,
		startedAt:   startedAt,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (p *Play) ID() string              { return p.id }
func (p *Play) Sequence() int           { return p.sequence }
func (p *Play) SessionPath() string     { return p.sessionPath }
func (p *Play) Entry() Entry            { return p.entry }
func (p *Play) Status() PlayStatus      { return p.status }
func (p *Play) StartedAt() time.Time    { return p.startedAt }
func (p *Play) ScrobbledAt() *time.Time { return p.scrobbledAt }
func (p *Play) CreatedAt() time.Time    { return p.createdAt }
func (p *Play) UpdatedAt() time.Time    { return p.updatedAt }
func (p *Play) DeletedAt() *time.Time   { return p.deletedAt }

func (p *Play) SetID(id string)             { p.id = id }
func (p *Play) SetSequence(sequence int)    { p.sequence = sequence }
func (p *Play) SetEntry(e Entry)            { p.entry = e }
func (p *Play) SetStatus(status PlayStatus) { p.status = status }
func (p *Play) SetCreatedAt(t time.Time)    { p.createdAt = t }
func (p *Play) SetUpdatedAt(t time.Time)    { p.updatedAt = t }
func (p *Play) SetDeletedAt(t *time.Time)   { p.deletedAt = t }
func (p *Play) SetScrobbledAt(t *time.Time) { p.scrobbledAt = t }

// Scrobble marks the play as scrobbled at t.
func (p *Play) Scrobble(t time.Time) {
	p.status = PlayStatusScrobbled
	p.scrobbledAt = &t
}

// Validate checks required fields and status consistency.
func (p *Play) Validate() error {
	if p.id == "" {
		return fmt.Errorf("%w: play ID is required", shared.ErrInvalidInput)
	}
	if p.sessionPath == "" {
		return fmt.Errorf("%w: session path is required", shared.ErrInvalidInput)
	}
	switch p.status {
	case PlayStatusPlaying:
	case PlayStatusScrobbled:
		if p.scrobbledAt == nil {
			return fmt.Errorf("%w: scrobbled play has no scrobble time", shared.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown play status %q", shared.ErrInvalidInput, p.status)
	}
	if p.startedAt.IsZero() {
		return fmt.Errorf("%w: play start time is required", shared.ErrInvalidInput)
	}
	return nil
}
