package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/reelscribe/reelscribe/internal/api"
	"github.com/reelscribe/reelscribe/internal/audio"
	"github.com/reelscribe/reelscribe/internal/config"
	"github.com/reelscribe/reelscribe/internal/pipeline"
	"github.com/reelscribe/reelscribe/internal/recognizer"
	"github.com/reelscribe/reelscribe/internal/source"
	"github.com/reelscribe/reelscribe/internal/storage/sqlite"
	"github.com/reelscribe/reelscribe/internal/websocket"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting ReelScribe server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Ensure the scratch directory exists
	if err := os.MkdirAll(cfg.Scratch.BaseDir, 0755); err != nil {
		log.Error("Failed to create scratch directory", logger.Error(err), logger.String("path", cfg.Scratch.BaseDir))
		os.Exit(1)
	}

	// Generate today's database filename
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("reelscribe-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	// Ensure the directory exists
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	log.Info("Using daily database", logger.String("path", dbPath))

	db, err := sqlite.Open(dbPath, log)
	if err != nil {
		log.Error("Failed to open SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	transcriptionStorage, err := sqlite.NewTranscriptionStorage(db, log)
	if err != nil {
		log.Error("Failed to initialize transcription storage", logger.Error(err))
		os.Exit(1)
	}

	// Create WebSocket server for job event streaming
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create the acquisition source
	var mediaSource source.Service
	switch cfg.Acquisition.SourceType {
	case "command":
		mediaSource = source.NewCommandSource(source.Config{
			Command:     cfg.Acquisition.Command,
			ScriptPath:  cfg.Acquisition.ScriptPath,
			TimeoutSecs: cfg.Acquisition.TimeoutSecs,
		}, log)
	default:
		mediaSource = source.NewLocalSource()
	}

	// Create pipeline components
	extractor := audio.NewExtractor(audio.Config{
		FFmpegPath:  cfg.Extraction.FFmpegPath,
		SampleRate:  cfg.Extraction.SampleRate,
		Channels:    cfg.Extraction.Channels,
		TimeoutSecs: cfg.Extraction.TimeoutSecs,
		VerifyWAV:   cfg.Extraction.VerifyWAV,
	}, log)

	invoker := recognizer.NewInvoker(recognizer.Config{
		Command:      cfg.Recognizer.Command,
		ScriptPath:   cfg.Recognizer.ScriptPath,
		TimeoutSecs:  cfg.Recognizer.TimeoutSecs,
		MaxAttempts:  cfg.Recognizer.MaxAttempts,
		RetryDelayMs: cfg.Recognizer.RetryDelayMs,
	}, log)

	pipelineService := pipeline.NewService(cfg, mediaSource, extractor, invoker, transcriptionStorage, wsServer, log)

	ctx, cancel := context.WithCancel(context.Background())
	go pipelineService.Start(ctx)

	// Create API router
	router := api.NewRouter(pipelineService, cfg, log, wsServer, transcriptionStorage)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop the pipeline worker first so no new jobs start mid-shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	log.Info("Server fully stopped")
}
