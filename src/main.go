package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"schemawatch/src/features/config"
	"schemawatch/src/features/hosting"
	"schemawatch/src/features/logging"
	"schemawatch/src/features/migrating"
	"schemawatch/src/features/watching"
	"schemawatch/src/infra/database"
	"schemawatch/src/infra/migratecli"
	"schemawatch/src/infra/notify"
	"schemawatch/src/infra/poll"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	cfg := cfgManager.Get()
	if cfg.Database.URL == "" {
		log.Fatalf("DATABASE_URL is not set; the migration tool needs a target database")
	}

	// Create the run history store
	history, err := database.NewSqliteHistory(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open run history store: %v", err)
	}

	// Create the migration orchestrator over the external tool
	migrator := migratecli.New(cfgManager)
	migratingService := migrating.NewService(migrator, history, cfgManager)

	// Attach the Telegram notifier if enabled
	if cfg.Telegram.Enabled {
		notifier, err := hosting.NewTelegramNotifier(cfgManager)
		if err != nil {
			slog.Error("Failed to initialize Telegram notifier", "error", err)
		} else {
			migratingService.SetNotifier(notifier)
			slog.Info("Telegram notifier attached")
		}
	}

	// Create the filesystem observer for the configured backend
	events := make(chan watching.Event, 64)
	var observer watching.Observer
	switch cfg.Watch.Backend {
	case "poll":
		observer = poll.NewWatcher(cfg.Watch.Paths, cfg.Watch.Extensions, cfg.Watch.PollInterval(), events)
	default:
		observer, err = notify.NewWatcher(cfg.Watch.Paths, cfg.Watch.Extensions, events)
		if err != nil {
			log.Fatalf("failed to create file watcher: %v", err)
		}
	}

	debouncer := watching.NewDebouncer(cfg.Watch.QuietPeriod())
	watchService := watching.NewService(observer, debouncer, events, migratingService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migratingService.Start(ctx)
	if err := watchService.Start(ctx); err != nil {
		log.Fatalf("failed to start watcher: %v", err)
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, migratingService)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Schemawatch started. Press Ctrl+C to shut down.",
		"watch_paths", cfg.Watch.Paths,
		"quiet_period", cfg.Watch.QuietPeriod().String(),
		"port", cfg.Server.Port,
	)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down...")

	watchService.Stop()
	migratingService.Stop()
	cancel()

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	if err := history.Close(); err != nil {
		slog.Error("failed to close run history store", "error", err)
	}
	slog.Info("Schemawatch gracefully shut down.")
}
