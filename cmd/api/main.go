package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sec-rag/internal/config"
	"sec-rag/internal/contextutil"
	"sec-rag/internal/http"
	"sec-rag/internal/service"
	"sec-rag/internal/storage"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about indexed SEC annual reports. Every answer
// cites its document, section and page; unsupported questions get a fixed refusal.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: SEC Filings RAG API
//   description: |
//     Grounded question answering over a fixed corpus of 10-K filings.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	qaService := service.NewQAService(service.NewEngineLoader(cfg), storage.NewQueryRepo(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm up in the background so the first question does not pay for
	// loading the index. Failures surface through /api/health.
	go func() {
		warmCtx := contextutil.WithLogger(ctx, logger.With("component", "warmup"))
		if err := qaService.Ready(warmCtx); err != nil {
			slog.Error("Engine warm-up failed", "error", err)
		}
	}()

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           http.NewRouter(&http.Deps{QAService: qaService}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.GenerationTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", server.Addr, "index_dir", cfg.IndexDir, "backend", cfg.VectorBackend)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed: %v", err)
	}
	slog.Info("API server stopped")
}
