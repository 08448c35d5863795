package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgetapp/internal/logger"
	"budgetapp/internal/models"
	"budgetapp/internal/storage"
	"budgetapp/internal/uuid"
)

// DefaultTimeout bounds a single task run.
const DefaultTimeout = 10 * time.Minute

// Registry creates tasks, reports their status and runs them.
type Registry struct {
	store      Store
	dispatcher Dispatcher
	files      storage.Storage
	handlers   map[models.TaskKind]Handler
	timeout    time.Duration
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout sets the per-task timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns a Registry. files is used to remove task input
// artifacts once a task terminates.
func NewRegistry(store Store, dispatcher Dispatcher, files storage.Storage, opts ...Option) *Registry {
	r := &Registry{
		store:      store,
		dispatcher: dispatcher,
		files:      files,
		handlers:   make(map[models.TaskKind]Handler),
		timeout:    DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers the handler for a task kind.
func (r *Registry) Handle(kind models.TaskKind, h Handler) {
	r.handlers[kind] = h
}

// NewTaskID returns a fresh opaque task id, so callers can store inputs
// under it before submitting.
func (r *Registry) NewTaskID() string {
	return uuid.New()
}

// Submit records a pending task and dispatches it. It returns as soon as the
// task is queued. If queuing fails the task is marked failed and its input
// artifact removed before the error is returned.
func (r *Registry) Submit(ctx context.Context, task *models.Task, params any) (*models.Task, error) {
	if task.ID == "" {
		task.ID = r.NewTaskID()
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode task params: %w", err)
		}
		task.Params = string(raw)
	}
	task.Status = models.TaskStatusPending

	if err := r.store.Create(ctx, task); err != nil {
		r.removeInput(ctx, task)
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := r.dispatcher.Dispatch(ctx, Message{TaskID: task.ID, Kind: task.Kind}); err != nil {
		_, _ = r.store.Finish(ctx, task.ID, Outcome{
			Status:      models.TaskStatusFailed,
			Error:       "failed to queue task: " + err.Error(),
			CompletedAt: r.now(),
		})
		r.removeInput(ctx, task)
		return nil, fmt.Errorf("dispatch task: %w", err)
	}

	logger.Get().Infow("Task submitted", "task_id", task.ID, "kind", task.Kind, "user_id", task.UserID)
	return task, nil
}

// Status reports the state of a task owned by userID. Unknown ids and tasks
// owned by someone else both report TaskStatusNotFound.
func (r *Registry) Status(ctx context.Context, userID, taskID string) (*Status, error) {
	task, err := r.Task(ctx, userID, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return &Status{TaskID: taskID, Status: models.TaskStatusNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	created := task.CreatedAt
	st := &Status{
		TaskID:      task.ID,
		Kind:        task.Kind,
		Status:      task.Status,
		CreatedAt:   &created,
		CompletedAt: task.CompletedAt,
	}
	switch task.Status {
	case models.TaskStatusSucceeded:
		if task.Result != "" {
			st.Result = json.RawMessage(task.Result)
		}
	case models.TaskStatusFailed:
		st.Error = task.Error
	}
	return st, nil
}

// Task returns a task owned by userID, or ErrTaskNotFound.
// Ids that are not UUIDs cannot name a task and never reach the store.
func (r *Registry) Task(ctx context.Context, userID, taskID string) (*models.Task, error) {
	if !uuid.IsValid(taskID) {
		return nil, ErrTaskNotFound
	}
	task, err := r.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Run is the MessageHandler executed by workers. A task already claimed by
// another delivery is dropped. Handler errors and panics fail the task; they
// are not returned, so the transport does not redeliver.
func (r *Registry) Run(ctx context.Context, msg Message) error {
	log := logger.With("task_id", msg.TaskID, "kind", msg.Kind)

	claimed, err := r.store.Claim(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("claim task %s: %w", msg.TaskID, err)
	}
	if !claimed {
		log.Warnw("Task already claimed or finished, dropping delivery")
		return nil
	}

	task, err := r.store.Get(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", msg.TaskID, err)
	}
	defer r.removeInput(context.WithoutCancel(ctx), task)

	log = log.With("user_id", task.UserID)
	log.Infow("Task started")

	result, runErr := r.execute(ctx, task)

	outcome := Outcome{CompletedAt: r.now(), ArtifactKey: task.ArtifactKey}
	if runErr != nil {
		outcome.Status = models.TaskStatusFailed
		outcome.Error = runErr.Error()
		outcome.ArtifactKey = ""
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			outcome.Status = models.TaskStatusFailed
			outcome.Error = "encode result: " + err.Error()
		} else {
			outcome.Status = models.TaskStatusSucceeded
			outcome.Result = string(raw)
		}
	}

	if _, err := r.store.Finish(context.WithoutCancel(ctx), task.ID, outcome); err != nil {
		log.Errorw("Failed to record task outcome", "error", err)
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}

	if outcome.Status == models.TaskStatusFailed {
		log.Errorw("Task failed", "error", outcome.Error)
	} else {
		log.Infow("Task succeeded")
	}
	return nil
}

// Abandon fails a queued task that will not be run, for example because its
// queue is shutting down, and removes its input. Tasks a worker already
// claimed or finished are left alone.
func (r *Registry) Abandon(ctx context.Context, msg Message) error {
	task, err := r.store.Get(ctx, msg.TaskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task %s: %w", msg.TaskID, err)
	}
	if task.Status != models.TaskStatusPending {
		return nil
	}
	return r.fail(ctx, task, "task was not started before shutdown")
}

// FailInterrupted fails tasks in one of statuses whose last update is before
// cutoff. It recovers tasks orphaned by a process that stopped without
// finishing them and returns how many were failed.
func (r *Registry) FailInterrupted(ctx context.Context, cutoff time.Time, statuses ...models.TaskStatus) (int, error) {
	tasks, err := r.store.ListUnfinished(ctx, cutoff, statuses...)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, task := range tasks {
		if err := r.fail(ctx, task, "task was interrupted by a restart"); err != nil {
			return failed, err
		}
		failed++
	}
	if failed > 0 {
		logger.Get().Warnw("Failed interrupted tasks", "count", failed, "cutoff", cutoff)
	}
	return failed, nil
}

func (r *Registry) fail(ctx context.Context, task *models.Task, reason string) error {
	changed, err := r.store.Finish(ctx, task.ID, Outcome{
		Status:      models.TaskStatusFailed,
		Error:       reason,
		CompletedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}
	if changed {
		r.removeInput(ctx, task)
	}
	return nil
}

func (r *Registry) execute(ctx context.Context, task *models.Task) (result any, err error) {
	h, ok := r.handlers[task.Kind]
	if !ok {
		return nil, fmt.Errorf("no handler for task kind %q", task.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()

	result, err = h(ctx, task)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("task timed out after %s", r.timeout)
	}
	return result, err
}

func (r *Registry) removeInput(ctx context.Context, task *models.Task) {
	if task.InputKey == "" || r.files == nil {
		return
	}
	if err := r.files.Delete(ctx, task.InputKey); err != nil {
		logger.Get().Errorw("Failed to remove task input", "task_id", task.ID, "key", task.InputKey, "error", err)
	}
}
