package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/decklog/internal/formatter"
	"github.com/desertthunder/decklog/internal/repositories"
	"github.com/desertthunder/decklog/internal/server"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded plays, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	criteria := map[string]any{"limit": limit}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}
	if path := cmd.String("session"); path != "" {
		criteria["session_path"] = shared.ExpandPath(path)
	}

	plays, err := repositories.NewPlayRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]server.PlayView, 0, len(plays))
		now := time.Now()
		for _, p := range plays {
			views = append(views, server.NewPlayView(p, now))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(plays) == 0 {
		return r.writePlain("No plays recorded yet\n")
	}
	return r.writePlain("%s\n", formatter.PlaysTable(plays, time.Now()))
}
