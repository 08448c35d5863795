package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetapp/internal/models"

	"gorm.io/gorm"
)

// GormStore keeps tasks in the tasks table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, task *models.Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &task, nil
}

// Claim is a conditional update, so concurrent deliveries race on the row
// and only one sees RowsAffected == 1.
func (s *GormStore) Claim(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusPending).
		Update("status", models.TaskStatusRunning)
	if res.Error != nil {
		return false, fmt.Errorf("claim task: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) Finish(ctx context.Context, id string, outcome Outcome) (bool, error) {
	if !outcome.Status.IsTerminal() {
		return false, fmt.Errorf("finish task with non-terminal status %q", outcome.Status)
	}
	completed := outcome.CompletedAt
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status IN ?", id, []models.TaskStatus{models.TaskStatusPending, models.TaskStatusRunning}).
		Updates(map[string]interface{}{
			"status":       outcome.Status,
			"result":       outcome.Result,
			"error":        outcome.Error,
			"artifact_key": outcome.ArtifactKey,
			"completed_at": &completed,
		})
	if res.Error != nil {
		return false, fmt.Errorf("finish task: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ListUnfinished(ctx context.Context, cutoff time.Time, statuses ...models.TaskStatus) ([]*models.Task, error) {
	var tasks []*models.Task
	if len(statuses) == 0 {
		return tasks, nil
	}
	err := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, cutoff).
		Order("created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list unfinished tasks: %w", err)
	}
	return tasks, nil
}

var _ Store = (*GormStore)(nil)
