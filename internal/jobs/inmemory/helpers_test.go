package inmemory

import "budgetapp/internal/models"

func newPendingTask(id string) *models.Task {
	return &models.Task{ID: id, UserID: "u1", Kind: models.TaskKindImport, Status: models.TaskStatusPending}
}
