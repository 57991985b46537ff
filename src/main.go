package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contre95/listenlog/src/features/catalog"
	"github.com/contre95/listenlog/src/features/config"
	"github.com/contre95/listenlog/src/features/goals"
	"github.com/contre95/listenlog/src/features/hosting"
	"github.com/contre95/listenlog/src/features/imaging"
	"github.com/contre95/listenlog/src/features/jobs"
	"github.com/contre95/listenlog/src/features/logging"
	"github.com/contre95/listenlog/src/features/stats"
	"github.com/contre95/listenlog/src/infra/artwork"
	"github.com/contre95/listenlog/src/infra/database"
	"github.com/contre95/listenlog/src/infra/discogs"
	"github.com/contre95/listenlog/src/infra/musicbrainz"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := cfgManager.Get()

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Open the database
	target := cfg.Database.Path
	if cfg.Database.Type == database.TypePostgres {
		target = cfg.Database.DSN
	}
	db, err := database.NewLibrary(cfg.Database.Type, target)
	if err != nil {
		log.Fatalf("failed to open library: %v", err)
	}
	defer db.Close()

	// External clients
	mb := cfg.Providers.MusicBrainz
	mbClient := &musicbrainz.MBClient{BaseURL: mb.BaseURL, RateLimit: mb.RateLimit, UserAgent: mb.UserAgent}
	caaClient := &musicbrainz.CAAClient{BaseURL: mb.CoverArtURL, RateLimit: mb.RateLimit, UserAgent: mb.UserAgent}
	var fallback imaging.ImageSource
	if dc := cfg.Providers.Discogs; dc.Enabled {
		fallback = &discogs.Client{BaseURL: dc.BaseURL, Key: dc.Key, Secret: dc.Secret, UserAgent: mb.UserAgent}
		slog.Info("Discogs image fallback enabled")
	}

	// Create the job service
	jobService := jobs.NewService(&cfg.Jobs)

	// Create the feature services
	imageService := imaging.NewService(db, artwork.NewService(cfgManager), caaClient, fallback, jobService)
	catalogService := catalog.NewService(db, mbClient, imageService, jobService)
	goalService := goals.NewService(db)
	statsService := stats.NewService(db)

	// Register Tasks
	jobService.RegisterHandler(imaging.JobType, jobs.NewBaseTaskHandler(imaging.NewImageTask(imageService)))
	jobService.RegisterHandler(goals.JobType, jobs.NewBaseTaskHandler(goals.NewCheckTask(goalService)))

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, hosting.Services{
		Catalog: catalogService,
		Images:  imageService,
		Stats:   statsService,
		Goals:   goalService,
		Jobs:    jobService,
	})
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfg.Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	if err := server.Shutdown(); err != nil {
		slog.Error("Failed to shutdown server", "error", err)
	}
	slog.Info("Server gracefully shut down.")
}
