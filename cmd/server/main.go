// Package main implements the entry point for the planvox-api server,
// which orchestrates batch speech synthesis for scheme documents: it
// serves the HTTP API, runs the queue worker pool, and reconciles
// scheme states as tasks finish.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/planvox/planvox-api/internal/config"
)

// main is the entry point for the planvox-api server.
// It loads configuration, sets up logging, runs migration commands when
// requested, and otherwise connects the backing services and starts the
// HTTP server alongside the queue worker.
func main() {
	migrateCmd := flag.String(
		"migrate",
		"",
		"run a migration command and exit (up, down, reset, status, version, create)",
	)
	migrationName := flag.String("migrate-name", "", "name for the 'create' migration command")
	flag.Parse()

	// Call the core initialization logic
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Migration commands run standalone and exit without starting the server.
	if *migrateCmd != "" {
		if err := handleMigrations(cfg, *migrateCmd, *migrationName); err != nil {
			appLogger.Error("Migration command failed",
				"command", *migrateCmd,
				"error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// run connects the backing services, applies pending migrations, and starts
// the application. It returns once the server has shut down.
func run(cfg *config.Config, appLogger *slog.Logger) error {
	ctx := context.Background()

	// Establish the database connection
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	// Apply pending migrations before any store touches the schema.
	if err := applyStartupMigrations(db, appLogger); err != nil {
		closeDatabase(db, appLogger)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Verify the queue's Redis backend is reachable before starting workers.
	if err := checkRedis(ctx, cfg, appLogger); err != nil {
		closeDatabase(db, appLogger)
		return fmt.Errorf("redis connectivity check failed: %w", err)
	}

	// Build the application with all dependencies injected
	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		closeDatabase(db, appLogger)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

// initializeApp loads configuration and sets up application logging.
// Returns the loaded config, the root logger, and any initialization error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	// Load configuration
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set up structured logging using the configured log level
	appLogger, err := setupAppLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	return cfg, appLogger, nil
}
