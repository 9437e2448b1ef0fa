package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/decklog/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and runs database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	if err := config.Validate(); err != nil {
		r.logger.Warn("config needs attention before running watch", "err", err)
	}

	r.writePlain("✓ decklog is set up\n")
	r.writePlainln("Next steps:")
	r.writePlain("1. Point session.path in %s at your DJ software's session log\n", configPath)
	r.writePlain("2. Run 'decklog watch --tui' while you play\n")
	return nil
}
