package repositories

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
)

// HistoryRecorder persists now-playing transitions and scrobbles as plays.
//
// It subscribes to ticks for timestamps; all callbacks run on the scan loop.
type HistoryRecorder struct {
	repo        *PlayRepository
	sessionPath string
	logger      *log.Logger
	last        time.Time
}

// NewHistoryRecorder creates a [HistoryRecorder] for plays read from sessionPath.
func NewHistoryRecorder(repo *PlayRepository, sessionPath string, logger *log.Logger) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, sessionPath: sessionPath, logger: logger.With("observer", "history")}
}

func (h *HistoryRecorder) OnTick(tick models.Tick) {
	h.last = tick.Time
}

// OnNowPlaying records a play, reusing an unpromoted play of the same entry so a repeat after a
// reset or flicker does not leave a second playing row behind.
func (h *HistoryRecorder) OnNowPlaying(entry models.Entry) {
	play, err := h.repo.FindPlaying(h.sessionPath, entry.Identity())
	switch {
	case err == nil:
		play.SetEntry(entry)
		if err := h.repo.Update(play); err != nil {
			h.logger.Error("failed to record play", "id", play.ID(), "err", err)
			return
		}
		h.logger.Debug("play resumed", "id", play.ID(), "sequence", play.Sequence())
		return
	case !errors.Is(err, shared.ErrNotFound):
		h.logger.Error("failed to record play", "entry", entry.String(), "err", err)
		return
	}

	play = models.NewPlay(0, h.sessionPath, entry, h.now())
	if err := h.repo.Create(play); err != nil {
		h.logger.Error("failed to record play", "entry", entry.String(), "err", err)
		return
	}
	h.logger.Debug("play recorded", "id", play.ID(), "sequence", play.Sequence())
}

// OnScrobble promotes the matching play, creating one when now playing was never recorded.
func (h *HistoryRecorder) OnScrobble(entry models.Entry) {
	at := h.now()

	play, err := h.repo.FindPlaying(h.sessionPath, entry.Identity())
	switch {
	case errors.Is(err, shared.ErrNotFound):
		play = models.NewPlay(0, h.sessionPath, entry, at)
		play.Scrobble(at)
		if err := h.repo.Create(play); err != nil {
			h.logger.Error("failed to record scrobble", "entry", entry.String(), "err", err)
		}
		return
	case err != nil:
		h.logger.Error("failed to look up play", "entry", entry.String(), "err", err)
		return
	}

	play.SetEntry(entry)
	play.Scrobble(at)
	if err := h.repo.Update(play); err != nil {
		h.logger.Error("failed to record scrobble", "id", play.ID(), "err", err)
	}
}

func (h *HistoryRecorder) now() time.Time {
	if h.last.IsZero() {
		return time.Now()
	}
	return h.last
}
