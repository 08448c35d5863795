package models

import "time"

// TaskKind identifies which bulk job a task runs.
type TaskKind string

const (
	TaskKindImport TaskKind = "import"
	TaskKindExport TaskKind = "export"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	// TaskStatusNotFound is reported for unknown ids; it is never stored.
	TaskStatusNotFound TaskStatus = "not_found"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Task is a Task Status Registry entry for an asynchronous bulk job.
// Params and Result hold JSON documents.
type Task struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"task_id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind        TaskKind   `gorm:"not null" json:"kind"`
	Status      TaskStatus `gorm:"not null;index" json:"status"`
	Params      string     `gorm:"type:text" json:"-"`
	InputKey    string     `json:"-"`
	ArtifactKey string     `json:"-"`
	Result      string     `gorm:"type:text" json:"-"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AllModels lists every persisted model, in dependency order, for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Transaction{},
		&Budget{},
		&Goal{},
		&GoalContribution{},
		&MonthlyBudgetSummary{},
		&Task{},
		&AuditLog{},
	}
}
