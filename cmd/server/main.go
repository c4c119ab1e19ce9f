// Package main is the entry point for the Record backend server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (flags, config file, RECORD_* env vars)
// 2. Create the logger
// 3. Build and start the server
//
// All actual logic lives in imported packages (internal/server,
// internal/service, internal/handler, ...).
//
// EXAMPLES:
//
//	RECORD_AUTH_JWT_SECRET=... RECORD_YOUTUBE_API_KEY=... go run ./cmd/server
//	go run ./cmd/server --config config.yaml --port 9000
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joshijoe05/records-backend/internal/config"
	"github.com/joshijoe05/records-backend/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text for humans in development, JSON for log shippers in production.
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
