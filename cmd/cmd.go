// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/decklog/internal/formatter"
	"github.com/desertthunder/decklog/internal/tasks"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write config.toml from the template and initialize the play history database",
		Action: r.Setup,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow the session log and publish now-playing and scrobble events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Session log to follow (overrides session.path)",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Scan interval (overrides session.interval)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show the live terminal monitor",
			},
			&cli.BoolFlag{
				Name:  "no-isolate",
				Usage: "Run observer tasks in-process",
			},
		},
		Action: r.Watch,
	}
}

func dumpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Decode the session log once and print its entries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Session log to decode (overrides session.path)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, text, markdown, csv, json",
				Value:   string(formatter.FormatTable),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.Dump,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded plays",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of plays to list",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list plays with this status (playing, scrobbled)",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Only list plays from this session log",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.History,
	}
}

func simulateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Append synthetic entries to a session log for manual testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Session log to append to (created if missing)",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of entries to append",
				Value:   5,
			},
			&cli.DurationFlag{
				Name:  "every",
				Usage: "Delay between entries; 0 appends them all at once",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "length",
				Usage: "Track length in seconds",
				Value: 180,
			},
		},
		Action: r.Simulate,
	}
}

// taskCommand is the entry point of isolated task processes.
func taskCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      tasks.TaskCommand,
		Usage:     "Run one isolated task read from stdin",
		Hidden:    true,
		ArgsUsage: "<kind>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "kind"},
		},
		Action: r.Task,
	}
}
