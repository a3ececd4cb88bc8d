package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/classhub/internal/app"
	"github.com/allisson/classhub/internal/config"
)

// RunDispatcher starts the outbox event dispatcher with graceful shutdown
// support. The dispatcher drains pending envelopes for every active tenant on
// a fixed interval; multiple dispatcher processes can run side by side since
// claims are serialized by the database.
func RunDispatcher(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting dispatcher")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get dispatcher from container (this initializes all dependencies)
	dispatcher, err := container.Dispatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start dispatcher and metrics server in goroutines
	runErr := make(chan error, 2)
	go func() {
		if err := dispatcher.Start(ctx); err != nil {
			runErr <- fmt.Errorf("dispatcher error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				runErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or a fatal error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-runErr:
		logger.Error("dispatcher error, initiating shutdown", slog.Any("error", err))

		if metricsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
			defer shutdownCancel()

			if shutErr := metricsServer.Shutdown(shutdownCtx); shutErr != nil {
				return errors.Join(err, fmt.Errorf("metrics server shutdown: %w", shutErr))
			}
		}

		return err
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}

	return nil
}
