package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/decklog/internal/formatter"
	"github.com/desertthunder/decklog/internal/session"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Dump decodes the session log once and prints or writes a setlist.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	path := config.Session.Path
	if s := cmd.String("session"); s != "" {
		path = s
	}
	if path == "" {
		return fmt.Errorf("%w: session log path", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	reg, err := session.Registry()
	if err != nil {
		return err
	}

	source := session.NewFileSource(path)
	data, err := source.ReadAll(ctx)
	if err != nil {
		return err
	}

	snap, err := session.Scan(data, reg, 1)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", source.Path(), err)
	}

	version, err := session.Version(data, reg)
	if err != nil {
		r.logger.Debug("no version chunk", "err", err)
	}

	r.logger.Debug("decoded session log", "path", source.Path(), "entries", snap.Len(), "size", humanize.Bytes(uint64(snap.Size)))

	setlist := formatter.NewSetlist(source.Path(), version, snap)

	if out := cmd.String("output"); out != "" {
		written, err := formatter.WriteExport(setlist, format, out)
		if err != nil {
			return err
		}
		r.logger.Info("setlist written", "path", written, "format", format, "entries", snap.Len())
		return nil
	}

	rendered, err := formatter.Render(setlist, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(rendered); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
