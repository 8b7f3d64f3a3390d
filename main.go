// docmatch is a credit-gated document similarity service: users spend
// credits to upload documents and get cosine-similarity matches against the
// stored corpus.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"docmatch/internal/api"
	"docmatch/internal/config"
	"docmatch/internal/credits"
	"docmatch/internal/embeddings"
	"docmatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(cfg)

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	embedder, err := embeddings.New(cfg.Embedder)
	if err != nil {
		log.Fatal("Failed to build embedding provider:", err)
	}

	resetter := credits.NewResetter(store, cfg.Credits.ResetAmount, logger)
	if err := resetter.Start(cfg.ResetInterval()); err != nil {
		log.Fatal("Failed to start credit reset:", err)
	}
	defer resetter.Stop()

	server := api.NewServer(store, embedder, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	readTimeout := time.Duration(cfg.Server.ReadTimeout) * time.Second
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	if err := server.Run(addr, readTimeout, writeTimeout); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.App.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.App.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
