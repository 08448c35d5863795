package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"budgetapp/internal/jobs"
	"budgetapp/internal/models"
)

// Store is an in-memory implementation of jobs.Store.
// Data is lost on restart; use jobs.GormStore for persistence.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

// NewStore creates a new in-memory task store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*models.Task)}
}

func (s *Store) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	now := time.Now()
	task.CreatedAt, task.UpdatedAt = now, now

	// Copy so later caller mutations do not leak in
	taskCopy := *task
	s.tasks[task.ID] = &taskCopy
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, jobs.ErrTaskNotFound
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	if task.Status != models.TaskStatusPending {
		return false, nil
	}
	task.Status = models.TaskStatusRunning
	task.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) Finish(ctx context.Context, id string, outcome jobs.Outcome) (bool, error) {
	if !outcome.Status.IsTerminal() {
		return false, fmt.Errorf("finish task with non-terminal status %q", outcome.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status.IsTerminal() {
		return false, nil
	}
	completed := outcome.CompletedAt
	task.Status = outcome.Status
	task.Result = outcome.Result
	task.Error = outcome.Error
	task.ArtifactKey = outcome.ArtifactKey
	task.CompletedAt = &completed
	task.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) ListUnfinished(ctx context.Context, cutoff time.Time, statuses ...models.TaskStatus) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.Task
	for _, task := range s.tasks {
		if !task.UpdatedAt.Before(cutoff) || !slices.Contains(statuses, task.Status) {
			continue
		}
		taskCopy := *task
		tasks = append(tasks, &taskCopy)
	}
	slices.SortFunc(tasks, func(a, b *models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return tasks, nil
}

var _ jobs.Store = (*Store)(nil)
