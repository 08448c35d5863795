// Package app wires configuration, storage, the job queue and services
// together for the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"budgetapp/internal/config"
	"budgetapp/internal/handlers"
	"budgetapp/internal/jobs"
	"budgetapp/internal/jobs/amqpqueue"
	"budgetapp/internal/jobs/inmemory"
	"budgetapp/internal/models"
	"budgetapp/internal/router"
	"budgetapp/internal/services"
	"budgetapp/internal/storage"
)

// Queue backends accepted in QUEUE_BACKEND.
const (
	QueueMemory = "memory"
	QueueAMQP   = "amqp"
)

// Queue both dispatches and consumes job messages.
type Queue interface {
	jobs.Dispatcher
	jobs.Consumer
}

// OpenQueue builds the queue selected by cfg.QueueBackend.
func OpenQueue(cfg *config.Config) (Queue, error) {
	switch cfg.QueueBackend {
	case QueueMemory, "":
		return inmemory.NewQueue(cfg.JobWorkers*4, cfg.JobWorkers), nil
	case QueueAMQP:
		client, err := amqpqueue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.JobWorkers)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

// Services holds every service of the application.
type Services struct {
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Reports      services.ReportServicer
	Budgets      services.BudgetServicer
	Goals        services.GoalServicer
	Summaries    services.SummaryServicer
	Bulk         services.BulkServicer
	Audit        services.AuditServicer
}

// NewServices creates the services over db. The bulk service registers the
// import and export handlers on registry.
func NewServices(db *gorm.DB, registry *jobs.Registry, files storage.Storage, cfg *config.Config) *Services {
	categories := services.NewCategoryService(db)
	return &Services{
		Users:        services.NewUserService(db, categories),
		Categories:   categories,
		Transactions: services.NewTransactionService(db, categories),
		Reports:      services.NewReportService(db),
		Budgets:      services.NewBudgetService(db),
		Goals:        services.NewGoalService(db),
		Summaries:    services.NewSummaryService(db),
		Bulk:         services.NewBulkService(db, registry, files, cfg.IncomeMarkers, cfg.ImportMaxSize),
		Audit:        services.NewAuditService(db),
	}
}

// Handlers creates the HTTP handlers over s.
func (s *Services) Handlers() router.Handlers {
	return router.Handlers{
		Auth:        handlers.NewAuthHandler(s.Users, s.Audit),
		Category:    handlers.NewCategoryHandler(s.Categories, s.Audit),
		Transaction: handlers.NewTransactionHandler(s.Transactions, s.Reports, s.Audit),
		Budget:      handlers.NewBudgetHandler(s.Budgets, s.Audit),
		Goal:        handlers.NewGoalHandler(s.Goals, s.Audit),
		Report:      handlers.NewReportHandler(s.Reports),
		Summary:     handlers.NewSummaryHandler(s.Summaries),
		Bulk:        handlers.NewBulkHandler(s.Bulk, s.Audit),
	}
}

// Runtime is everything a process needs besides the HTTP surface.
type Runtime struct {
	DB       *gorm.DB
	Files    storage.Storage
	Queue    Queue
	Registry *jobs.Registry
	Services *Services

	queueBackend string
	jobTimeout   time.Duration
	startedAt    time.Time
}

// NewRuntime opens storage and the queue and builds the registry and services.
func NewRuntime(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Runtime, error) {
	files, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact storage: %w", err)
	}

	queue, err := OpenQueue(cfg)
	if err != nil {
		_ = files.Close()
		return nil, fmt.Errorf("failed to open job queue: %w", err)
	}

	registry := jobs.NewRegistry(jobs.NewGormStore(db), queue, files, jobs.WithTimeout(cfg.JobTimeout))
	if mem, ok := queue.(*inmemory.Queue); ok {
		mem.OnStop(registry.Abandon)
	}

	return &Runtime{
		DB:           db,
		Files:        files,
		Queue:        queue,
		Registry:     registry,
		Services:     NewServices(db, registry, files, cfg),
		queueBackend: cfg.QueueBackend,
		jobTimeout:   cfg.JobTimeout,
		startedAt:    time.Now(),
	}, nil
}

// StartWorkers fails tasks orphaned by an earlier process, then consumes
// queued tasks in this process.
//
// The in-memory queue dies with its process, so every pending or running
// task older than this runtime is orphaned. AMQP messages outlive the
// process and pending tasks are still delivered; only running tasks that
// outlasted the job timeout are treated as dead.
func (r *Runtime) StartWorkers(ctx context.Context) error {
	cutoff := r.startedAt
	statuses := []models.TaskStatus{models.TaskStatusPending, models.TaskStatusRunning}
	if r.queueBackend == QueueAMQP {
		cutoff = r.startedAt.Add(-r.jobTimeout)
		statuses = []models.TaskStatus{models.TaskStatusRunning}
	}
	if _, err := r.Registry.FailInterrupted(ctx, cutoff, statuses...); err != nil {
		return fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}
	return r.Queue.Start(ctx, r.Registry.Run)
}

// Close stops consumers and releases the queue and storage.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	if err := r.Queue.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := r.Queue.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.Files.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
