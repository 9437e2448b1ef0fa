package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/decklog/internal/services"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/desertthunder/decklog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Task runs one isolated task. The parent writes the JSON payload to stdin.
//
// The child never loads the config file: the payload carries everything the task needs.
func (r *Runner) Task(ctx context.Context, cmd *cli.Command) error {
	kind := cmd.StringArg("kind")
	if kind == "" {
		return fmt.Errorf("%w: task kind", shared.ErrMissingArgument)
	}

	logger := shared.WithLogger(r.logger, "pid", os.Getpid())
	if level := cmd.String("log-level"); level != "" {
		if err := shared.SetLogLevel(logger, level); err != nil {
			return err
		}
	}

	reg := services.RegisterTasks(tasks.NewRegistry())
	return tasks.ServeTask(reg, kind, r.input, logger)
}
