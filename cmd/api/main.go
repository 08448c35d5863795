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

	"github.com/gin-gonic/gin"

	"budgetapp/internal/app"
	"budgetapp/internal/config"
	"budgetapp/internal/database"
	"budgetapp/internal/logger"
	"budgetapp/internal/router"
	"budgetapp/internal/scheduler"
	"budgetapp/internal/validator"

	_ "budgetapp/internal/docs" // Import swagger docs
)

// @title           Budgetapp API
// @version         1.0
// @description     Budgetapp is a personal budgeting service: an income/expense ledger with monthly reports, per-category budgets, savings goals and CSV import/export.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, appConfig, dbManager.DB())
	if err != nil {
		return err
	}

	// The in-memory queue is only reachable from this process, so it is
	// consumed here. With AMQP, cmd/worker consumes.
	if appConfig.QueueBackend != app.QueueAMQP {
		if err := rt.StartWorkers(ctx); err != nil {
			return fmt.Errorf("failed to start job workers: %w", err)
		}
		log.Infof("Started %d in-process job workers", appConfig.JobWorkers)
	}

	sched, err := scheduler.New(appConfig.SnapshotSchedule, rt.Services.Summaries, appConfig.JobTimeout)
	if err != nil {
		return err
	}
	sched.Start()

	engine := router.New(rt.Services.Handlers(), router.Options{
		PipelineAPIKey: appConfig.PipelineAPIKey,
		Swagger:        true,
		RequestLogging: true,
	})

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting budgetapp server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	sched.Stop(shutdownCtx)
	if err := rt.Close(shutdownCtx); err != nil {
		log.Errorw("Error stopping job runtime", "error", err)
	}

	log.Info("Server exited")
	return nil
}
