package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/jobs"
	"budgetapp/internal/ledgercsv"
	"budgetapp/internal/models"
	"budgetapp/internal/services"
)

const testTaskID = "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4aa0"

// --- mock bulk service ---

type mockBulkService struct {
	submitImportFn func(ctx context.Context, userID string, file io.Reader) (*models.Task, error)
	submitExportFn func(ctx context.Context, userID string, params services.ExportParams) (*models.Task, error)
	taskStatusFn   func(ctx context.Context, userID, taskID string) (*jobs.Status, error)
	openExportFn   func(ctx context.Context, userID, taskID string) (*services.ExportArtifact, error)
}

var _ services.BulkServicer = (*mockBulkService)(nil)

func (m *mockBulkService) ImportTransactions(_ context.Context, _ string, _ io.Reader) (*services.ImportResult, error) {
	return &services.ImportResult{Success: true, Errors: []string{}}, nil
}

func (m *mockBulkService) ExportTransactions(_ context.Context, _ string, _ services.ExportParams) ([]ledgercsv.ExportRow, error) {
	return nil, nil
}

func (m *mockBulkService) SubmitImport(ctx context.Context, userID string, file io.Reader) (*models.Task, error) {
	if m.submitImportFn != nil {
		return m.submitImportFn(ctx, userID, file)
	}
	return &models.Task{ID: testTaskID, UserID: userID, Kind: models.TaskKindImport, Status: models.TaskStatusPending}, nil
}

func (m *mockBulkService) SubmitExport(ctx context.Context, userID string, params services.ExportParams) (*models.Task, error) {
	if m.submitExportFn != nil {
		return m.submitExportFn(ctx, userID, params)
	}
	return &models.Task{ID: testTaskID, UserID: userID, Kind: models.TaskKindExport, Status: models.TaskStatusPending}, nil
}

func (m *mockBulkService) TaskStatus(ctx context.Context, userID, taskID string) (*jobs.Status, error) {
	if m.taskStatusFn != nil {
		return m.taskStatusFn(ctx, userID, taskID)
	}
	return &jobs.Status{TaskID: taskID, Status: models.TaskStatusNotFound}, nil
}

func (m *mockBulkService) OpenExport(ctx context.Context, userID, taskID string) (*services.ExportArtifact, error) {
	if m.openExportFn != nil {
		return m.openExportFn(ctx, userID, taskID)
	}
	return nil, apperrors.ErrNotFound
}

func setupBulkRouter(handler *BulkHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/import/csv", handler.ImportCSV)
	auth.GET("/export/csv", handler.ExportCSV)
	auth.GET("/tasks/:task_id", handler.GetTaskStatus)
	auth.GET("/tasks/:task_id/download", handler.DownloadExport)
	return r
}

func TestBulkHandler_ImportCSV(t *testing.T) {
	t.Run("returns 202 with task id", func(t *testing.T) {
		var gotBody string
		svc := &mockBulkService{
			submitImportFn: func(_ context.Context, userID string, file io.Reader) (*models.Task, error) {
				raw, err := io.ReadAll(file)
				if err != nil {
					return nil, err
				}
				gotBody = string(raw)
				return &models.Task{ID: testTaskID, UserID: userID, Kind: models.TaskKindImport, Status: models.TaskStatusPending}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBulkRouter(NewBulkHandler(svc, audit))

		content := "Date,Type,Category,Description,Amount\n2024-01-05,Расход,Food,Lunch,12.50\n"
		rec := doMultipart(t, r, "/import/csv", "file", "ledger.csv", content)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotBody != content {
			t.Errorf("service received %q", gotBody)
		}
		result := parseJSON(t, rec)
		if result["task_id"] != testTaskID || result["status"] != "pending" {
			t.Errorf("unexpected body: %v", result)
		}
		if loc := rec.Header().Get("Location"); loc != "/api/v1/tasks/"+testTaskID {
			t.Errorf("unexpected Location %q", loc)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "SUBMIT_IMPORT" {
			t.Errorf("expected SUBMIT_IMPORT audit, got %+v", audit.entries)
		}
	})

	t.Run("returns 400 without file", func(t *testing.T) {
		r := setupBulkRouter(NewBulkHandler(&mockBulkService{}, &mockAuditService{}))

		rec := doMultipart(t, r, "/import/csv", "", "", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_IMPORT_FILE")
	})

	t.Run("returns 400 on non-csv file", func(t *testing.T) {
		r := setupBulkRouter(NewBulkHandler(&mockBulkService{}, &mockAuditService{}))

		rec := doMultipart(t, r, "/import/csv", "file", "ledger.xlsx", "binary")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_IMPORT_FILE")
	})

	t.Run("returns 413 when too large", func(t *testing.T) {
		svc := &mockBulkService{
			submitImportFn: func(_ context.Context, _ string, _ io.Reader) (*models.Task, error) {
				return nil, apperrors.ErrImportTooLarge
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doMultipart(t, r, "/import/csv", "file", "ledger.CSV", "a,b\n")

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rec.Code)
		}
	})
}

func TestBulkHandler_ExportCSV(t *testing.T) {
	t.Run("returns 202 and passes the period", func(t *testing.T) {
		var got services.ExportParams
		svc := &mockBulkService{
			submitExportFn: func(_ context.Context, userID string, params services.ExportParams) (*models.Task, error) {
				got = params
				return &models.Task{ID: testTaskID, UserID: userID, Kind: models.TaskKindExport, Status: models.TaskStatusPending}, nil
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/export/csv?year=2024&month=3", "")

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Year == nil || *got.Year != 2024 || got.Month == nil || *got.Month != 3 {
			t.Errorf("unexpected params %+v", got)
		}
		if parseJSON(t, rec)["kind"] != string(models.TaskKindExport) {
			t.Errorf("expected export kind, got %s", rec.Body.String())
		}
	})

	t.Run("no filters exports everything", func(t *testing.T) {
		var got services.ExportParams
		svc := &mockBulkService{
			submitExportFn: func(_ context.Context, _ string, params services.ExportParams) (*models.Task, error) {
				got = params
				return &models.Task{ID: testTaskID}, nil
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/export/csv", "")

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if got.Year != nil || got.Month != nil {
			t.Errorf("expected no filters, got %+v", got)
		}
	})

	t.Run("returns 400 on bad month", func(t *testing.T) {
		r := setupBulkRouter(NewBulkHandler(&mockBulkService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/export/csv?month=march", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBulkHandler_GetTaskStatus(t *testing.T) {
	t.Run("reports a finished import", func(t *testing.T) {
		svc := &mockBulkService{
			taskStatusFn: func(_ context.Context, _, taskID string) (*jobs.Status, error) {
				return &jobs.Status{
					TaskID: taskID,
					Kind:   models.TaskKindImport,
					Status: models.TaskStatusSucceeded,
					Result: json.RawMessage(`{"success":true,"transactions_created":2,"errors":["row 2: invalid amount"]}`),
				}, nil
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tasks/"+testTaskID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["status"] != "succeeded" {
			t.Errorf("expected succeeded, got %v", result["status"])
		}
		payload := result["result"].(map[string]interface{})
		if payload["transactions_created"].(float64) != 2 {
			t.Errorf("expected 2 created, got %v", payload["transactions_created"])
		}
	})

	t.Run("unknown task answers 200 not_found", func(t *testing.T) {
		r := setupBulkRouter(NewBulkHandler(&mockBulkService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tasks/whatever", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["status"] != "not_found" {
			t.Errorf("expected not_found, got %s", rec.Body.String())
		}
	})
}

func TestBulkHandler_DownloadExport(t *testing.T) {
	t.Run("streams the csv", func(t *testing.T) {
		body := "Date,Type,Category,Description,Amount\n2024-01-05,Expense,Food,Lunch,12.50\n"
		svc := &mockBulkService{
			openExportFn: func(_ context.Context, _, _ string) (*services.ExportArtifact, error) {
				return &services.ExportArtifact{
					Filename: "transactions_20240201_120000.csv",
					Reader:   io.NopCloser(strings.NewReader(body)),
				}, nil
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tasks/"+testTaskID+"/download", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Body.String() != body {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions_20240201_120000.csv") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("unexpected Content-Type %q", ct)
		}
	})

	t.Run("returns 409 while running", func(t *testing.T) {
		svc := &mockBulkService{
			openExportFn: func(_ context.Context, _, _ string) (*services.ExportArtifact, error) {
				return nil, apperrors.ErrArtifactNotReady
			},
		}
		r := setupBulkRouter(NewBulkHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tasks/"+testTaskID+"/download", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ARTIFACT_NOT_READY")
	})

	t.Run("returns 404 for foreign task", func(t *testing.T) {
		r := setupBulkRouter(NewBulkHandler(&mockBulkService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tasks/"+testTaskID+"/download", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
