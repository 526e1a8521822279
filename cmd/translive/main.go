package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/petems/translive/internal/audio"
	"github.com/petems/translive/internal/config"
	"github.com/petems/translive/internal/logging"
	"github.com/petems/translive/internal/permissions"
	"github.com/petems/translive/internal/service"
	"github.com/petems/translive/internal/session"
	"github.com/petems/translive/internal/transcript"
	"github.com/petems/translive/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// A .env beside the binary can carry the service credential in dev
	godotenv.Load()

	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	apiKey, err := config.APIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Missing service credential")
	}

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize audio devices
	capture, err := audio.NewCapture()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio capture")
	}
	defer capture.Close()

	output, err := audio.NewOutput()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio output")
	}
	defer output.Close()

	// Translation service client
	client := &service.WSClient{
		URL:    cfg.Service.URL,
		APIKey: apiKey,
		Log:    log,
	}

	transcriptLog := &transcript.Log{}

	// Create tray UI first (we'll pass it to the session manager)
	trayUI := tray.New(nil, cfg, transcriptLog, Version, Commit)
	trayUI.SetLogger(log)

	// Create session manager with tray as status updater
	manager := session.New(session.Config{
		Capture: capture,
		Output:  output,
		Client:  client,
		Config:  cfg,
		Log:     transcriptLog,
		Logger:  log,
		Status:  trayUI,
	})

	// Set manager reference in tray
	trayUI.SetManager(manager)

	log.Info().Str("service", cfg.Service.URL).Msg("Translive starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		if err := manager.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}
