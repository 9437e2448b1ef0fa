package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/repositories"
	"github.com/desertthunder/decklog/internal/server"
	"github.com/desertthunder/decklog/internal/services"
	"github.com/desertthunder/decklog/internal/session"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/desertthunder/decklog/internal/tasks"
	"github.com/desertthunder/decklog/internal/tracker"
	"github.com/desertthunder/decklog/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch follows the session log until interrupted.
//
// Startup order matters: every observer subscribes before the scheduler's first tick.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if s := cmd.String("session"); s != "" {
		config.Session.Path = s
	}
	if d := cmd.Duration("interval"); d > 0 {
		config.Session.Interval = d
	}
	if cmd.Bool("no-isolate") {
		config.Tasks.Isolate = false
	}
	if err := config.Validate(); err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI && !isTerminal(os.Stdout) {
		return fmt.Errorf("%w: --tui needs an interactive terminal", shared.ErrInvalidArgument)
	}
	if err := r.redirectLogs(config, useTUI); err != nil {
		return err
	}

	lock, err := shared.NewInstanceLock(config.Database.Path)
	if err != nil {
		return err
	}
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	reg, err := session.Registry()
	if err != nil {
		return err
	}
	engine, err := tracker.NewEngine(config.Tracker)
	if err != nil {
		return err
	}

	source := session.NewFileSource(config.Session.Path)
	logger := shared.WithLogger(r.logger, "session", filepath.Base(source.Path()))

	bus := tasks.NewBus(shared.WithLogger(logger, "component", "bus"))
	runner := tasks.NewRunner(tasks.RunnerOpts{
		Isolate:  config.Tasks.Isolate,
		Registry: services.RegisterTasks(tasks.NewRegistry()),
		Logger:   shared.WithLogger(logger, "component", "tasks"),
	})
	defer runner.Wait()

	repo := repositories.NewPlayRepository(db)
	observers := []any{
		repositories.NewHistoryRecorder(repo, source.Path(), shared.WithLogger(logger, "component", "history")),
		tasks.NowPlayingFunc(func(e models.Entry) { logger.Info("now playing", "entry", e.String(), "deck", e.Deck) }),
		tasks.ScrobbleFunc(func(e models.Entry) { logger.Info("scrobbled", "entry", e.String()) }),
	}
	if config.Webhook.URL != "" {
		observers = append(observers, services.NewWebhookNotifier(config.Webhook, runner, shared.WithLogger(logger, "component", "webhook")))
	}
	if config.Overlay.Path != "" {
		overlay, err := services.NewOverlayNotifier(config.Overlay, runner, shared.WithLogger(logger, "component", "overlay"))
		if err != nil {
			return err
		}
		observers = append(observers, overlay)
	}

	var progress chan tasks.ProgressUpdate
	var monitor *ui.Monitor
	if useTUI {
		progress = make(chan tasks.ProgressUpdate, 16)
		monitor = ui.NewMonitor(256)
		observers = append(observers, monitor)
	}

	scheduler, err := tasks.NewScheduler(tasks.SchedulerOpts{
		Scanner:  session.NewScanner(source, reg),
		Engine:   engine,
		Bus:      bus,
		Interval: config.Session.Interval,
		Logger:   shared.WithLogger(logger, "component", "scheduler"),
		Progress: progress,
	})
	if err != nil {
		return err
	}

	var status *server.StatusHandler
	if config.Server.Enabled {
		status = server.NewStatusHandler(source.Path(), repo, scheduler.Phase, shared.WithLogger(logger, "component", "server"))
		observers = append(observers, status)
	}

	for _, o := range observers {
		if _, err := bus.Subscribe(o); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan error, 1)
	if status != nil {
		router := server.NewBasicRouter()
		router.Use(server.Recover(logger), server.Logging(logger))
		router.Handler(status)
		go func() {
			err := server.Serve(ctx, config.Server.Addr(), router, logger)
			if err != nil {
				logger.Error("status server stopped", "err", err)
			}
			serverDone <- err
		}()
	} else {
		close(serverDone)
	}

	logger.Info("watching session log",
		"path", source.Path(),
		"interval", config.Session.Interval,
		"isolate", runner.Isolated(),
		"tui", useTUI,
	)

	if useTUI {
		err = r.runMonitor(ctx, stop, scheduler, monitor, progress, source.Path())
	} else {
		err = scheduler.Run(ctx)
	}
	stop()

	if serr := <-serverDone; serr != nil && err == nil {
		err = serr
	}
	logger.Info("stopped watching", "tick", scheduler.Previous().Tick)
	return err
}

// runMonitor runs the scheduler in the background and the monitor in the foreground.
//
// Quitting the monitor stops the scheduler; the scheduler stopping closes the monitor's event stream.
func (r *Runner) runMonitor(ctx context.Context, stop context.CancelFunc, scheduler *tasks.Scheduler, monitor *ui.Monitor, progress chan tasks.ProgressUpdate, path string) error {
	schedulerDone := make(chan error, 1)
	go func() {
		err := scheduler.Run(ctx)
		monitor.Close()
		close(progress)
		schedulerDone <- err
	}()

	p := tea.NewProgram(ui.NewModel(path, monitor.Events(), progress), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	stop()

	serr := <-schedulerDone
	if dropped := monitor.Dropped(); dropped > 0 {
		r.logger.Warn("monitor fell behind", "dropped_events", dropped)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return serr
}

// redirectLogs sends logs to a file when configured, or always in TUI mode so they do not corrupt the screen.
func (r *Runner) redirectLogs(config *shared.Config, useTUI bool) error {
	path := config.Logging.File
	if path == "" && useTUI {
		path = filepath.Join(filepath.Dir(config.Database.Path), "decklog-tui.log")
	}
	if path == "" {
		return nil
	}

	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(path))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)
	return nil
}
