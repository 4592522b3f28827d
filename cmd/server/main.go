// Package main implements the entry point for the try-on API server, which
// accepts virtual try-on submissions and drives their asynchronous
// processing pipeline.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/lasprendas/tryon-api/internal/config"
	"github.com/lasprendas/tryon-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run wires the application together and blocks until shutdown. It exists so
// main stays a thin wrapper around an error-returning function.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_concurrency", cfg.Worker.Concurrency,
		"admission_threshold", cfg.Worker.AdmissionThreshold)

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.start(ctx)
}
