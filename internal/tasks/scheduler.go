package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/desertthunder/decklog/internal/tracker"
)

// Scanner produces a snapshot of the session log for a tick.
type Scanner interface {
	Scan(ctx context.Context, tick uint64) (models.Snapshot, error)
}

// SchedulerOpts configures a [Scheduler].
type SchedulerOpts struct {
	Scanner  Scanner
	Engine   *tracker.Engine
	Bus      *Bus
	Interval time.Duration
	Logger   *log.Logger
	Progress chan<- ProgressUpdate // optional
	Now      func() time.Time      // optional, defaults to time.Now
}

// Scheduler drives the scan and diff cycle. It is the only owner of the previous snapshot.
type Scheduler struct {
	scanner  Scanner
	engine   *tracker.Engine
	bus      *Bus
	interval time.Duration
	logger   *log.Logger
	progress chan<- ProgressUpdate
	now      func() time.Time

	tick     uint64
	previous models.Snapshot
	phase    atomic.Int32
}

// NewScheduler validates opts and returns an idle [Scheduler].
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Scanner == nil || opts.Engine == nil || opts.Bus == nil {
		return nil, fmt.Errorf("%w: scheduler needs a scanner, engine, and bus", shared.ErrMissingArgument)
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", shared.ErrInvalidConfig, opts.Interval)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		scanner:  opts.Scanner,
		engine:   opts.Engine,
		bus:      opts.Bus,
		interval: opts.Interval,
		logger:   logger,
		progress: opts.Progress,
		now:      now,
	}, nil
}

// Phase returns the phase the scheduler is currently in. Safe to call from any goroutine.
func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Scheduler) setPhase(p Phase, tick uint64) {
	s.phase.Store(int32(p))
	sendProgress(s.progress, phaseUpdate(p, tick))
}

// Run steps immediately and then once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		s.Step(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "ticks", s.tick)
			return nil
		case <-ticker.C:
		}
	}
}

// Step runs one tick and returns the Diff it published.
//
// Scan failures are logged and published as a failed, empty Diff; the previous snapshot is
// only replaced after a successful scan.
func (s *Scheduler) Step(ctx context.Context) models.Diff {
	s.tick++
	tick := models.Tick{Number: s.tick, Time: s.now()}

	s.setPhase(PhaseScanning, tick.Number)
	snap, err := s.scanner.Scan(ctx, tick.Number)

	var diff models.Diff
	if err != nil {
		s.logScanError(tick, err)
		diff = models.Diff{PrevTick: s.previous.Tick, Tick: tick.Number, Failed: true}
	} else {
		s.setPhase(PhaseDiffing, tick.Number)
		diff = s.engine.Step(s.previous, snap, tick)
		if diff.Reset {
			s.logger.Warn("session log reset", "tick", tick.Number, "err", shared.ErrResetDetected,
				"entries", snap.Len(), "previous_entries", s.previous.Len())
		}
	}

	s.bus.PublishTick(tick)
	s.bus.PublishDiff(diff)
	if diff.NowPlaying != nil {
		s.logger.Info("now playing", "tick", tick.Number, "entry", diff.NowPlaying.String())
		s.bus.PublishNowPlaying(*diff.NowPlaying)
	}
	if diff.Scrobbled != nil {
		s.logger.Info("scrobbled", "tick", tick.Number, "entry", diff.Scrobbled.String())
		s.bus.PublishScrobble(*diff.Scrobbled)
	}

	if err == nil {
		s.previous = snap
	}
	s.setPhase(PhaseIdle, tick.Number)
	return diff
}

func (s *Scheduler) logScanError(tick models.Tick, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		s.logger.Debug("scan cancelled", "tick", tick.Number)
	case shared.IsRecoverable(err):
		s.logger.Warn("scan incomplete, keeping previous snapshot", "tick", tick.Number, "err", err)
	default:
		s.logger.Error("scan failed", "tick", tick.Number, "err", err)
	}
}

// Previous returns the last successfully scanned snapshot. Only call it from the goroutine running the scheduler.
func (s *Scheduler) Previous() models.Snapshot {
	return s.previous
}
