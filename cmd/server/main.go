/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and the environment configuration
  2. Validate configuration, build the logger
  3. Open the store, run migrations, wire engines (package app)
  4. Apply the household file to an unconfigured store
  5. Start the auto-close scheduler when AUTO_CLOSE=true
  6. Start the HTTP server with graceful shutdown

ENVIRONMENT:
  See config/config.go for the full list. Common ones:
    PORT=8080 DB_DRIVER=sqlite SQLITE_DB_PATH=./data/budget.db
    HOUSEHOLD_FILE=./household.toml AUTO_CLOSE=true LOG_FORMAT=json

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for an in-flight close)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the broker connection and the database
  5. Exit

EXAMPLES:
  # Run with in-memory database and a demo scenario
  SQLITE_DB_PATH=":memory:" ./server
  curl -XPOST localhost:8080/api/scenarios/load -d '{"scenario_id":"salaried-household"}'

SEE ALSO:
  - api/server.go: Router configuration
  - app/app.go: Dependency wiring
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/app"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: logging.ComponentApp,
	})
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	a, err := app.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown cleanup failed", logging.FieldError, err)
		}
	}()

	if _, err := a.EnsureSettings(context.Background()); err != nil {
		return fmt.Errorf("apply household settings: %w", err)
	}

	handler := api.NewHandler(a.Store, a.Resolver, a.Calendar, a.Closing, a.Forecast, logger)
	router := api.NewRouter(handler, logger)

	scheduler := api.NewAutoCloseScheduler(a.Closing, logger)
	scheduler.CheckInterval = cfg.AutoCloseInterval
	scheduler.Enabled = cfg.AutoClose
	scheduler.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CloseTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			logging.FieldOperation, logging.OpStartup,
			"addr", server.Addr,
			"db_driver", cfg.DBDriver,
			"auto_close", cfg.AutoClose)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down", logging.FieldOperation, logging.OpShutdown)
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
