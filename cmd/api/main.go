package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sheetsync/internal"
	"sheetsync/internal/config"
	"sheetsync/internal/container"
	"sheetsync/ui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(appConfig.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, appConfig, logger)
	stop()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// run serves the API until ctx is done or the listener fails. Either way the
// server is shut down and the container released before it returns.
func run(ctx context.Context, appConfig *config.Config, logger *internal.Logger) error {
	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create application container: %w", err)
	}
	defer appContainer.Shutdown(context.Background())

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// Initial load runs in the background; the API answers 503 until it settles
	go func() {
		if _, err := appContainer.Controller.Mount(ctx); err != nil {
			logger.Error("initial load failed: %v", err)
		}
	}()

	server := ui.NewApp(appContainer.Controller, logger).Server(ui.Config{Port: appConfig.Server.Port})
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting sheetsync API on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed: %v", err)
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
		return nil
	}
}
