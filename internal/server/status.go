package server

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/tasks"
	"github.com/dustin/go-humanize"
)

const defaultHistoryLimit = 20

// HistoryLister is the part of the play repository the status server reads.
type HistoryLister interface {
	List(criteria map[string]any) ([]*models.Play, error)
}

// Status is the body of GET /status.
type Status struct {
	SessionPath    string        `json:"session_path"`
	Tick           uint64        `json:"tick"`
	LastTickAt     *time.Time    `json:"last_tick_at,omitempty"`
	Phase          string        `json:"phase"`
	LogSize        int           `json:"log_size"`
	LogSizeHuman   string        `json:"log_size_human"`
	Entries        int           `json:"entries"`
	LastScanFailed bool          `json:"last_scan_failed"`
	Resets         int           `json:"resets"`
	NowPlaying     *models.Entry `json:"now_playing,omitempty"`
	LastScrobble   *models.Entry `json:"last_scrobble,omitempty"`
	Started        string        `json:"started"`
}

// PlayView is the JSON form of a recorded play.
type PlayView struct {
	ID          string       `json:"id"`
	Sequence    int          `json:"sequence"`
	Status      string       `json:"status"`
	Entry       models.Entry `json:"entry"`
	StartedAt   time.Time    `json:"started_at"`
	ScrobbledAt *time.Time   `json:"scrobbled_at,omitempty"`
	Ago         string       `json:"ago"`
}

// NewPlayView converts a play, describing its start time relative to now.
func NewPlayView(p *models.Play, now time.Time) PlayView {
	return PlayView{
		ID:          p.ID(),
		Sequence:    p.Sequence(),
		Status:      string(p.Status()),
		Entry:       p.Entry(),
		StartedAt:   p.StartedAt(),
		ScrobbledAt: p.ScrobbledAt(),
		Ago:         humanize.RelTime(p.StartedAt(), now, "ago", "from now"),
	}
}

// StatusHandler observes the bus and serves the latest state over HTTP.
//
// Bus callbacks run on the scan loop and HTTP requests on server goroutines; mu guards every field.
type StatusHandler struct {
	mu           sync.RWMutex
	sessionPath  string
	startedAt    time.Time
	tick         models.Tick
	diff         models.Diff
	resets       int
	nowPlaying   *models.Entry
	lastScrobble *models.Entry

	history HistoryLister
	phase   func() tasks.Phase
	logger  *log.Logger
	now     func() time.Time
}

// NewStatusHandler creates a handler. history, phase and logger may be nil.
func NewStatusHandler(sessionPath string, history HistoryLister, phase func() tasks.Phase, logger *log.Logger) *StatusHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StatusHandler{
		sessionPath: sessionPath,
		startedAt:   time.Now(),
		history:     history,
		phase:       phase,
		logger:      logger,
		now:         time.Now,
	}
}

// Routes implements [Handler].
func (h *StatusHandler) Routes() []string {
	return []string{"GET /status", "GET /history"}
}

func (h *StatusHandler) OnTick(tick models.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick = tick
}

func (h *StatusHandler) OnDiff(diff models.Diff) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if diff.Failed {
		h.diff.Failed = true
		return
	}
	if diff.Reset {
		h.resets++
		h.nowPlaying = nil
	}
	h.diff = diff
}

func (h *StatusHandler) OnNowPlaying(entry models.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nowPlaying = &entry
}

func (h *StatusHandler) OnScrobble(entry models.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastScrobble = &entry
}

// Snapshot returns the current status.
func (h *StatusHandler) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Status{
		SessionPath:    h.sessionPath,
		Tick:           h.tick.Number,
		Phase:          tasks.PhaseIdle.String(),
		LogSize:        h.diff.Size,
		LogSizeHuman:   humanize.Bytes(uint64(max(h.diff.Size, 0))),
		Entries:        h.diff.Total,
		LastScanFailed: h.diff.Failed,
		Resets:         h.resets,
		Started:        humanize.RelTime(h.startedAt, h.now(), "ago", "from now"),
	}
	if !h.tick.Time.IsZero() {
		t := h.tick.Time
		s.LastTickAt = &t
	}
	if h.phase != nil {
		s.Phase = h.phase().String()
	}
	if h.nowPlaying != nil {
		e := *h.nowPlaying
		s.NowPlaying = &e
	}
	if h.lastScrobble != nil {
		e := *h.lastScrobble
		s.LastScrobble = &e
	}
	return s
}

// ServeHTTP implements [http.Handler].
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/status":
		writeJSON(w, http.StatusOK, h.Snapshot())
	case "/history":
		h.serveHistory(w, r)
	default:
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	}
}

func (h *StatusHandler) serveHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "play history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	criteria := map[string]any{"limit": limit}
	if status := r.URL.Query().Get("status"); status != "" {
		criteria["status"] = status
	}
	if h.sessionPath != "" {
		criteria["session_path"] = h.sessionPath
	}

	plays, err := h.history.List(criteria)
	if err != nil {
		h.logger.Error("failed to list plays", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plays")
		return
	}

	now := h.now()
	views := make([]PlayView, 0, len(plays))
	for _, p := range plays {
		views = append(views, NewPlayView(p, now))
	}
	writeJSON(w, http.StatusOK, views)
}
