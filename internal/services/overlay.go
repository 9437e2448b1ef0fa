package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/gofrs/flock"
)

// OverlayKind is the task kind of [OverlayTask].
const OverlayKind = "overlay"

const (
	lockSuffix       = ".lock"
	overlaySeqSuffix = ".seq"
)

// OverlayTask replaces the file at Path with Text.
//
// Tasks run as independent processes and may finish out of order. A task with a Seq no newer
// than the last one written leaves the file alone. A zero Seq always writes.
type OverlayTask struct {
	Path string `json:"path"`
	Text string `json:"text"`
	Seq  int64  `json:"seq,omitempty"`
}

func (t *OverlayTask) Kind() string { return OverlayKind }

func (t *OverlayTask) Run() {
	if err := t.Write(); err != nil {
		shared.NewLogger(os.Stderr).Error("overlay write failed", "path", t.Path, "err", err)
	}
}

// Write swaps the file in with a rename so readers never see a partial line.
//
// Writers serialize on a lock file next to Path and record the last written Seq beside it.
func (t *OverlayTask) Write() error {
	lock := flock.New(t.Path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock overlay: %w", err)
	}
	defer lock.Unlock()

	if t.Seq > 0 {
		if last, ok := readOverlaySeq(t.Path); ok && last >= t.Seq {
			return nil
		}
	}

	if err := t.replace(); err != nil {
		return err
	}
	if t.Seq > 0 {
		seq := strconv.FormatInt(t.Seq, 10) + "\n"
		if err := os.WriteFile(t.Path+overlaySeqSuffix, []byte(seq), 0o644); err != nil {
			return fmt.Errorf("failed to record overlay sequence: %w", err)
		}
	}
	return nil
}

func (t *OverlayTask) replace() error {
	dir := filepath.Dir(t.Path)
	tmp, err := os.CreateTemp(dir, ".overlay-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(t.Text + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close overlay: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.Path); err != nil {
		return fmt.Errorf("failed to replace overlay: %w", err)
	}
	return nil
}

func readOverlaySeq(path string) (int64, bool) {
	data, err := os.ReadFile(path + overlaySeqSuffix)
	if err != nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// OverlayNotifier renders the now-playing entry into a text file.
type OverlayNotifier struct {
	path       string
	tmpl       *template.Template
	dispatcher Dispatcher
	logger     *log.Logger
	seq        int64
}

// NewOverlayNotifier parses cfg.Format and returns a notifier writing to cfg.Path.
func NewOverlayNotifier(cfg shared.OverlayConfig, dispatcher Dispatcher, logger *log.Logger) (*OverlayNotifier, error) {
	tmpl, err := template.New("overlay").Parse(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: overlay.format: %v", shared.ErrInvalidConfig, err)
	}
	return &OverlayNotifier{
		path:       shared.ExpandPath(cfg.Path),
		tmpl:       tmpl,
		dispatcher: dispatcher,
		logger:     logger.With("notifier", "overlay"),
	}, nil
}

func (n *OverlayNotifier) Name() string { return OverlayKind }

func (n *OverlayNotifier) OnNowPlaying(entry models.Entry) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, entry); err != nil {
		n.logger.Error("failed to render overlay", "entry", entry.String(), "err", err)
		return
	}
	n.dispatcher.Dispatch(&OverlayTask{Path: n.path, Text: buf.String(), Seq: n.nextSeq()})
}

// nextSeq is wall-clock based so ordering holds across restarts, and strictly increasing.
func (n *OverlayNotifier) nextSeq() int64 {
	n.seq = max(time.Now().UnixNano(), n.seq+1)
	return n.seq
}

// OnScrobble does nothing; the overlay only follows now playing.
func (n *OverlayNotifier) OnScrobble(models.Entry) {}
