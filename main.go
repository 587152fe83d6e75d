package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"phimstream/api"
	"phimstream/config"
	"phimstream/handlers"
	"phimstream/services/catalog"
	"phimstream/services/playback"
	"phimstream/services/progress"
	"phimstream/services/streams"
	"phimstream/services/users"
	"phimstream/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("phimstream backend starting...")

	configPath := os.Getenv("PHIMSTREAM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// File logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Generate the access PIN on first boot
	settings.Server.PIN = strings.TrimSpace(settings.Server.PIN)
	if settings.Server.PIN == "" {
		pin, err := utils.GeneratePIN()
		if err != nil {
			log.Fatalf("failed to generate PIN: %v", err)
		}
		settings.Server.PIN = pin
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated PIN: %v", err)
		}
		fmt.Println("configure your frontend to use this 6-digit PIN for API access.")
	}
	fmt.Printf("phimstream PIN: %s\n", settings.Server.PIN)

	// Watch-progress store
	var store progress.Store
	switch settings.Storage.Backend {
	case config.StorageBackendSQLite:
		store, err = progress.NewSQLiteStore(settings.Storage.DatabasePath)
		if err != nil {
			log.Fatalf("failed to open progress database: %v", err)
		}
		log.Printf("[main] watch progress backed by sqlite at %s", settings.Storage.DatabasePath)
	default:
		store, err = progress.NewFileStore(afero.NewOsFs(), settings.Storage.Directory)
		if err != nil {
			log.Fatalf("failed to open progress store: %v", err)
		}
		log.Printf("[main] watch progress backed by JSON store in %s", settings.Storage.Directory)
	}
	defer store.Close()

	progressService := progress.NewService(store, settings.Playback.CompletedPercent)

	usersService, err := users.NewService(afero.NewOsFs(), settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to open profiles store: %v", err)
	}

	catalogClient := catalog.NewClient(
		settings.Catalog.BaseURL,
		time.Duration(settings.Catalog.TimeoutSec)*time.Second,
		settings.Catalog.RetryAttempts,
	)

	preferEmbed := true
	if settings.Playback.PreferEmbed != nil {
		preferEmbed = *settings.Playback.PreferEmbed
	}
	playbackManager := playback.NewManager(progressService, playback.Config{
		CheckpointInterval: time.Duration(settings.Playback.CheckpointIntervalSec) * time.Second,
		ResumeThresholdSec: settings.Playback.ResumeThresholdSec,
		PreferEmbed:        preferEmbed,
		Engine:             streams.NewManifestProber(time.Duration(settings.Playback.ManifestTimeoutSec) * time.Second),
		Resolver:           catalogClient,
	})

	r := utils.NewRouter()
	api.Register(
		r,
		func() string {
			s, err := cfgManager.Load()
			if err != nil {
				log.Printf("[main] reload settings for PIN check: %v", err)
				return settings.Server.PIN
			}
			return s.Server.PIN
		},
		handlers.NewUsersHandler(usersService),
		handlers.NewHistoryHandler(progressService, usersService, settings.Playback.HistoryLimit, settings.Playback.ContinueWatchingLimit),
		handlers.NewPlaybackHandler(playbackManager, usersService),
		handlers.NewCatalogHandler(catalogClient),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Close the active playback session so its final checkpoint lands before
	// the store goes away.
	if err := playbackManager.Close(shutdownCtx); err != nil {
		log.Printf("playback shutdown error: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
