// Command worker executes bulk import and export tasks delivered over AMQP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetapp/internal/app"
	"budgetapp/internal/config"
	"budgetapp/internal/database"
	"budgetapp/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.QueueBackend != app.QueueAMQP {
		return fmt.Errorf("worker requires QUEUE_BACKEND=%s, got %q", app.QueueAMQP, appConfig.QueueBackend)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, appConfig, dbManager.DB())
	if err != nil {
		return err
	}

	if err := rt.StartWorkers(ctx); err != nil {
		return fmt.Errorf("failed to start job consumer: %w", err)
	}
	log.Infow("Worker started, waiting for tasks", "queue", appConfig.AMQPQueue, "prefetch", appConfig.JobWorkers)

	<-ctx.Done()
	log.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.JobTimeout+30*time.Second)
	defer cancel()

	if err := rt.Close(shutdownCtx); err != nil {
		log.Errorw("Error during graceful shutdown", "error", err)
	}

	log.Info("Worker exited")
	return nil
}
