package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/services"
)

// BulkHandler handles asynchronous CSV import/export and task polling.
type BulkHandler struct {
	bulkService  services.BulkServicer
	auditService services.AuditServicer
}

// NewBulkHandler creates a new BulkHandler.
func NewBulkHandler(bulkService services.BulkServicer, auditService services.AuditServicer) *BulkHandler {
	return &BulkHandler{bulkService: bulkService, auditService: auditService}
}

// TaskAcceptedResponse is returned when a bulk job has been queued.
type TaskAcceptedResponse struct {
	TaskID    string            `json:"task_id"`
	Kind      models.TaskKind   `json:"kind"`
	Status    models.TaskStatus `json:"status"`
	StatusURL string            `json:"status_url"`
}

func accepted(c *gin.Context, task *models.Task) {
	statusURL := "/api/v1/tasks/" + task.ID
	c.Header("Location", statusURL)
	c.JSON(http.StatusAccepted, TaskAcceptedResponse{
		TaskID:    task.ID,
		Kind:      task.Kind,
		Status:    task.Status,
		StatusURL: statusURL,
	})
}

// ImportCSV handles uploading a CSV ledger for background import.
// @Summary     Import transactions from CSV
// @Description Queue a CSV file for import. Columns: Date, Type, Category, Description, Amount (English or Russian headers). Poll the returned task for the result.
// @Tags        bulk
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "CSV file"
// @Success     202 {object} TaskAcceptedResponse "Import queued"
// @Failure     400 {object} ErrorResponse "Missing or invalid file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /import/csv [post]
func (h *BulkHandler) ImportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidImportFile, "file is required"))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondWithError(c, apperrors.ErrInvalidImportFile)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	task, err := h.bulkService.SubmitImport(c.Request.Context(), userID, file)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SUBMIT_IMPORT", "task", task.ID, c.ClientIP(),
		map[string]interface{}{"filename": header.Filename, "size": header.Size})

	accepted(c, task)
}

// ExportCSV handles queuing a CSV export of the ledger.
// @Summary     Export transactions to CSV
// @Description Queue an export of the user's transactions, optionally limited to a year and month. Poll the returned task, then download the file.
// @Tags        bulk
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int false "Year"
// @Param       month query int false "Month (1-12)"
// @Success     202 {object} TaskAcceptedResponse "Export queued"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/csv [get]
func (h *BulkHandler) ExportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var params services.ExportParams
	if params.Year, err = parseOptionalIntQuery(c, "year"); err != nil {
		respondWithError(c, err)
		return
	}
	if params.Month, err = parseOptionalIntQuery(c, "month"); err != nil {
		respondWithError(c, err)
		return
	}

	task, err := h.bulkService.SubmitExport(c.Request.Context(), userID, params)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SUBMIT_EXPORT", "task", task.ID, c.ClientIP(),
		map[string]interface{}{"year": params.Year, "month": params.Month})

	accepted(c, task)
}

// GetTaskStatus handles polling a bulk task.
// @Summary     Get task status
// @Description Poll a bulk task. Unknown tasks and tasks of other users report status not_found.
// @Tags        bulk
// @Produce     json
// @Security    BearerAuth
// @Param       task_id path string true "Task ID"
// @Success     200 {object} jobs.Status "Task status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tasks/{task_id} [get]
func (h *BulkHandler) GetTaskStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.bulkService.TaskStatus(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// DownloadExport streams the CSV produced by a finished export task.
// @Summary     Download export
// @Description Download the CSV file of a succeeded export task
// @Tags        bulk
// @Produce     text/csv
// @Security    BearerAuth
// @Param       task_id path string true "Task ID"
// @Success     200 {file}   file          "CSV file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Task not found"
// @Failure     409 {object} ErrorResponse "Export not finished"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tasks/{task_id}/download [get]
func (h *BulkHandler) DownloadExport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	artifact, err := h.bulkService.OpenExport(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer artifact.Reader.Close()

	c.DataFromReader(http.StatusOK, -1, "text/csv; charset=utf-8", artifact.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename),
	})
}
