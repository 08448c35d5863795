// Package jobs is the Task Status Registry: it records bulk job tasks, hands
// them to a dispatcher and runs them exactly once on a worker.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"budgetapp/internal/models"
)

// ErrTaskNotFound is returned by a Store for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Message is what travels from the submitter to a worker.
// Only the task id is needed; everything else is read from the Store.
type Message struct {
	TaskID string          `json:"task_id"`
	Kind   models.TaskKind `json:"kind"`
}

// Dispatcher hands submitted tasks to workers.
type Dispatcher interface {
	// Dispatch enqueues msg for asynchronous execution.
	Dispatch(ctx context.Context, msg Message) error

	// Close releases the dispatcher's resources.
	Close() error
}

// Consumer delivers dispatched messages to a handler.
type Consumer interface {
	// Start begins consuming and returns once workers are running.
	Start(ctx context.Context, handler MessageHandler) error

	// Stop stops consuming and waits for in-flight messages.
	Stop(ctx context.Context) error
}

// MessageHandler processes one delivered message. A non-nil error asks the
// transport to redeliver.
type MessageHandler func(ctx context.Context, msg Message) error

// Store persists tasks and enforces their state machine.
type Store interface {
	// Create saves a new pending task.
	Create(ctx context.Context, task *models.Task) error

	// Get returns a task or ErrTaskNotFound.
	Get(ctx context.Context, id string) (*models.Task, error)

	// Claim moves a task from pending to running. It reports false when the
	// task was not pending, so at most one worker ever runs a task.
	Claim(ctx context.Context, id string) (bool, error)

	// Finish moves a non-terminal task into status, storing result or errMsg.
	// It reports false when the task had already reached a terminal state.
	Finish(ctx context.Context, id string, outcome Outcome) (bool, error)

	// ListUnfinished returns tasks in one of statuses last updated before cutoff.
	ListUnfinished(ctx context.Context, cutoff time.Time, statuses ...models.TaskStatus) ([]*models.Task, error)
}

// Outcome is the terminal state written by Finish.
type Outcome struct {
	Status      models.TaskStatus
	Result      string
	Error       string
	ArtifactKey string
	CompletedAt time.Time
}

// Handler executes the body of a task and returns its JSON-serializable result.
type Handler func(ctx context.Context, task *models.Task) (any, error)

// Status is the polled view of a task.
type Status struct {
	TaskID      string            `json:"task_id"`
	Kind        models.TaskKind   `json:"kind,omitempty"`
	Status      models.TaskStatus `json:"status"`
	Result      json.RawMessage   `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}
