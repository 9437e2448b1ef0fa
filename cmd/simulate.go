package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/desertthunder/decklog/internal/chunk"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/session"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/urfave/cli/v3"
)

var simulatedArtists = []string{"Floorplan", "Kerri Chandler", "DJ Koze", "Peggy Gou", "Moodymann"}
var simulatedKeys = []string{"8A", "9A", "10B", "4A", "11B"}

// Simulate appends synthetic entries to a session log, optionally one every interval.
func (r *Runner) Simulate(ctx context.Context, cmd *cli.Command) error {
	path := shared.ExpandPath(cmd.String("out"))
	count := cmd.Int("count")
	every := cmd.Duration("every")
	length := cmd.Int("length")

	if count <= 0 {
		return fmt.Errorf("%w: --count must be positive", shared.ErrInvalidArgument)
	}
	if every < 0 || length < 0 {
		return fmt.Errorf("%w: --every and --length must not be negative", shared.ErrInvalidArgument)
	}

	reg, err := session.Registry()
	if err != nil {
		return err
	}

	next, err := r.prepareSessionLog(ctx, path, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for i := range count {
		if i > 0 && every > 0 {
			select {
			case <-ctx.Done():
				r.logger.Info("simulation stopped", "appended", i)
				return nil
			case <-time.After(every):
			}
		}

		entry := simulatedEntry(next+i, length, time.Now())
		data, err := session.AppendEntry(nil, entry)
		if err != nil {
			return err
		}
		if err := appendFile(path, data); err != nil {
			return err
		}
		r.logger.Info("appended entry", "row", entry.Row, "entry", entry.String(), "path", path)
	}
	return nil
}

// prepareSessionLog creates the log with a version chunk when missing and returns the next row number.
func (r *Runner) prepareSessionLog(ctx context.Context, path string, reg *chunk.Registry) (int, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0):
		header, err := session.AppendVersion(nil, "")
		if err != nil {
			return 0, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, header, 0644); err != nil {
			return 0, fmt.Errorf("failed to create session log: %w", err)
		}
		r.logger.Info("created session log", "path", path)
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read session log: %w", err)
	}

	snap, err := session.NewScanner(session.NewFileSource(path), reg).Scan(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("refusing to append to an unreadable session log: %w", err)
	}
	return snap.Len(), nil
}

func simulatedEntry(row, length int, now time.Time) models.Entry {
	return models.Entry{
		Row:       uint32(row),
		Title:     fmt.Sprintf("Simulated Track %d", row+1),
		Artist:    simulatedArtists[row%len(simulatedArtists)],
		Album:     "decklog simulate",
		Genre:     "House",
		BPM:       118 + row%8,
		Key:       simulatedKeys[row%len(simulatedKeys)],
		Length:    length,
		StartTime: now,
		Deck:      1 + row%2,
		Played:    true,
		Filename:  fmt.Sprintf("simulated-%03d.mp3", row+1),
	}
}

// appendFile writes data with a single append so a concurrent scan sees either all of it or a truncated tail.
func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return f.Close()
}
