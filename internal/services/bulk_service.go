package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/jobs"
	"budgetapp/internal/ledgercsv"
	"budgetapp/internal/logger"
	"budgetapp/internal/models"
	"budgetapp/internal/money"
	"budgetapp/internal/storage"
)

// FallbackCategoryName is used for import rows without a category.
const FallbackCategoryName = "Other"

// DefaultImportMaxBytes bounds an uploaded import file.
const DefaultImportMaxBytes = 10 << 20

// ExportResult is the payload of a finished export task.
type ExportResult struct {
	Rows        []ledgercsv.ExportRow `json:"rows"`
	RowCount    int                   `json:"row_count"`
	DownloadURL string                `json:"download_url,omitempty"`
}

// bulkService runs CSV import and export as registry tasks.
type bulkService struct {
	db         *gorm.DB
	registry   *jobs.Registry
	files      storage.Storage
	classifier *ledgercsv.Classifier
	maxBytes   int64
	now        func() time.Time
}

// NewBulkService creates a BulkServicer and registers the import and export
// handlers on registry. incomeMarkers extend ledgercsv.DefaultIncomeMarkers.
func NewBulkService(db *gorm.DB, registry *jobs.Registry, files storage.Storage, incomeMarkers []string, maxBytes int64) BulkServicer {
	if maxBytes <= 0 {
		maxBytes = DefaultImportMaxBytes
	}
	s := &bulkService{
		db:         db,
		registry:   registry,
		files:      files,
		classifier: ledgercsv.NewClassifier(incomeMarkers...),
		maxBytes:   maxBytes,
		now:        time.Now,
	}
	registry.Handle(models.TaskKindImport, s.runImport)
	registry.Handle(models.TaskKindExport, s.runExport)
	return s
}

// SubmitImport stores the uploaded file and queues an import task for it.
func (s *bulkService) SubmitImport(ctx context.Context, userID string, file io.Reader) (*models.Task, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidImportFile, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.ErrImportTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidImportFile, "Import file is empty")
	}

	task := &models.Task{
		ID:     s.registry.NewTaskID(),
		UserID: userID,
		Kind:   models.TaskKindImport,
	}
	task.InputKey = storage.ImportKey(task.ID)
	if err := s.files.Put(ctx, task.InputKey, bytes.NewReader(data)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("store import file: %w", err))
	}

	submitted, err := s.registry.Submit(ctx, task, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return submitted, nil
}

// SubmitExport queues an export task for the selected period.
func (s *bulkService) SubmitExport(ctx context.Context, userID string, params ExportParams) (*models.Task, error) {
	if err := validateExportParams(params); err != nil {
		return nil, err
	}

	task := &models.Task{UserID: userID, Kind: models.TaskKindExport}
	submitted, err := s.registry.Submit(ctx, task, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return submitted, nil
}

func validateExportParams(p ExportParams) error {
	if p.Month != nil && (*p.Month < 1 || *p.Month > 12) {
		return apperrors.ErrInvalidPeriod
	}
	if p.Year != nil {
		if err := validatePeriod(*p.Year, 1); err != nil {
			return err
		}
	}
	return nil
}

// TaskStatus reports a task owned by userID.
func (s *bulkService) TaskStatus(ctx context.Context, userID, taskID string) (*jobs.Status, error) {
	st, err := s.registry.Status(ctx, userID, taskID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return st, nil
}

// OpenExport opens the CSV artifact of a succeeded export task.
func (s *bulkService) OpenExport(ctx context.Context, userID, taskID string) (*ExportArtifact, error) {
	task, err := s.registry.Task(ctx, userID, taskID)
	if errors.Is(err, jobs.ErrTaskNotFound) {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "Task not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if task.Kind != models.TaskKindExport {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "Task has no export file")
	}
	if task.Status != models.TaskStatusSucceeded || task.ArtifactKey == "" {
		return nil, apperrors.ErrArtifactNotReady
	}

	rc, err := s.files.Open(ctx, task.ArtifactKey)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "Export file no longer exists")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stamp := task.CreatedAt
	if task.CompletedAt != nil {
		stamp = *task.CompletedAt
	}
	return &ExportArtifact{
		Filename: fmt.Sprintf("transactions_%s.csv", stamp.UTC().Format("20060102_150405")),
		Reader:   rc,
	}, nil
}

// ImportTransactions creates one transaction per CSV row. Rows are handled in
// order and independently: a bad row adds one "row N: ..." entry to Errors and
// the next row is still processed. Only an unreadable header, a broken
// reader or ctx expiry fail the whole import.
func (s *bulkService) ImportTransactions(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	reader, err := ledgercsv.NewReader(r)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	today := s.now()
	result := &ImportResult{Errors: []string{}}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, err
			}
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if err := s.importRow(db, userID, rec, today); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rec.Line, rowError(err)))
			continue
		}
		result.TransactionsCreated++
	}

	result.Success = true
	return result, nil
}

func (s *bulkService) importRow(db *gorm.DB, userID string, rec ledgercsv.Record, today time.Time) error {
	amount, err := money.ParseAmount(rec.Amount)
	if err != nil {
		return err
	}

	name := rec.Category
	if name == "" {
		name = FallbackCategoryName
	}
	category, _, err := getOrCreateCategory(db, userID, name)
	if err != nil {
		return err
	}

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  category.ID,
		Type:        s.classifier.Classify(rec.Type),
		Amount:      amount,
		Description: rec.Description,
		Date:        ledgercsv.ParseDate(rec.Date, today),
	}
	return db.Omit("Category").Create(tx).Error
}

// rowError keeps AppError internals out of the user-visible error list.
func rowError(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// ExportTransactions returns the selected transactions as export rows,
// newest first.
func (s *bulkService) ExportTransactions(ctx context.Context, userID string, params ExportParams) ([]ledgercsv.ExportRow, error) {
	if err := validateExportParams(params); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Preload("Category").Where("user_id = ?", userID)
	if params.Year != nil {
		q = applyTransactionFilters(q, TransactionFilter{Year: params.Year, Month: params.Month})
	}

	var transactions []models.Transaction
	if err := q.Order("date DESC").Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rows := make([]ledgercsv.ExportRow, 0, len(transactions))
	for _, t := range transactions {
		// a month without a year selects that month in every year
		if params.Year == nil && params.Month != nil && int(t.Date.UTC().Month()) != *params.Month {
			continue
		}
		category := ""
		if t.Category != nil {
			category = t.Category.Name
		}
		rows = append(rows, ledgercsv.ExportRow{
			Date:        t.Date.UTC().Format(ledgercsv.DateLayout),
			Type:        t.Type.Label(),
			Category:    category,
			Description: t.Description,
			Amount:      money.Format(t.Amount),
		})
	}
	return rows, nil
}

func (s *bulkService) runImport(ctx context.Context, task *models.Task) (any, error) {
	rc, err := s.files.Open(ctx, task.InputKey)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer rc.Close()

	result, err := s.ImportTransactions(ctx, task.UserID, rc)
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Import finished",
		"task_id", task.ID,
		"user_id", task.UserID,
		"created", result.TransactionsCreated,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *bulkService) runExport(ctx context.Context, task *models.Task) (any, error) {
	var params ExportParams
	if task.Params != "" {
		if err := json.Unmarshal([]byte(task.Params), &params); err != nil {
			return nil, fmt.Errorf("decode export params: %w", err)
		}
	}

	rows, err := s.ExportTransactions(ctx, task.UserID, params)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := ledgercsv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}

	key := storage.ExportKey(task.ID)
	if err := s.files.Put(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("store export file: %w", err)
	}
	task.ArtifactKey = key

	return &ExportResult{
		Rows:        rows,
		RowCount:    len(rows),
		DownloadURL: "/api/v1/tasks/" + task.ID + "/download",
	}, nil
}
