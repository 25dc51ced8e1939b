package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"supportline/internal/agent"
	"supportline/internal/archive"
	"supportline/internal/canned"
	"supportline/internal/config"
	"supportline/internal/events"
	"supportline/internal/httpserver"
	"supportline/internal/llm"
	"supportline/internal/store"
	"supportline/internal/stt"
	"supportline/internal/telemetry"
	"supportline/internal/tts"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	if _, err := telemetry.InitLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(context.Background(), cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer cleanup()

	if err := os.MkdirAll(filepath.Dir(cfg.SessionsDBPath), 0755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}
	sessions, err := store.NewBoltStore(cfg.SessionsDBPath)
	if err != nil {
		return fmt.Errorf("open sessions store: %w", err)
	}
	defer sessions.Close()

	responder, err := canned.LoadResponder(cfg.CannedRulesPath)
	if err != nil {
		return fmt.Errorf("load canned rules: %w", err)
	}

	var generator agent.Generator
	if cfg.CerebrasKey != "" {
		generator = llm.NewCerebrasClient(cfg.CerebrasKey, cfg.CerebrasModelID)
	}

	var synthesizer agent.Synthesizer
	switch cfg.TTSProvider {
	case "deepgram":
		if cfg.DeepgramKey != "" {
			synthesizer = tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
		}
	default:
		if cfg.ElevenLabsKey != "" && cfg.ElevenLabsVoiceID != "" {
			synthesizer = tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		}
	}

	var uploader agent.Uploader
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		storage, err := archive.New(archive.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			return fmt.Errorf("init archive storage: %w", err)
		}
		uploader = storage
	}

	hub := events.NewHub()

	manager := agent.NewManager(agent.Options{
		Transcriber:        stt.NewWhisperClient(cfg.OpenAIKey, cfg.STTModel, cfg.STTLanguage),
		Generator:          generator,
		Synthesizer:        synthesizer,
		Responder:          responder,
		Store:              sessions,
		Events:             hub,
		Uploader:           uploader,
		Interval:           cfg.CycleInterval,
		MinClipBytes:       cfg.MinClipBytes,
		MinTranscriptChars: cfg.MinTranscriptChars,
		Logger:             slog.Default(),
		Tracer:             tracer,
		Meter:              meter,
	})

	srv := httpserver.New(httpserver.NewHandlers(manager, sessions, hub))

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.HTTPAddress)
		serverErrors <- srv.Start(cfg.HTTPAddress)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End live calls first so their transcripts get persisted.
	manager.Shutdown(ctx)
	if err := hub.Shutdown(ctx); err != nil {
		slog.Warn("event hub shutdown failed", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	return nil
}
