package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db         *gorm.DB
	categories CategoryServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, categories CategoryServicer) TransactionServicer {
	return &transactionService{
		db:         db,
		categories: categories,
	}
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns [start, end) for a calendar month.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func validateTransactionType(t models.TransactionType) error {
	switch t {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return nil
	}
	return apperrors.ErrInvalidTransactionType
}

// CreateTransaction creates a new transaction in one of the user's categories.
func (s *transactionService) CreateTransaction(
	userID string,
	categoryID string,
	transactionType models.TransactionType,
	amount int64,
	description string,
	date time.Time,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "amount must be greater than zero")
	}
	if err := validateTransactionType(transactionType); err != nil {
		return nil, err
	}
	if categoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category ID is required")
	}

	// Default date to today if not provided
	if date.IsZero() {
		date = time.Now()
	}

	if _, err := s.categories.GetCategoryByID(userID, categoryID); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: description,
		Date:        TruncateDate(date),
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	query := applyTransactionFilters(s.db.Model(&models.Transaction{}).Where("user_id = ?", userID), filter)

	result, err := pagination.Find[models.Transaction](query, page,
		pagination.Preload("Category"),
		pagination.OrderBy("date DESC", "created_at DESC"),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Year != nil {
		start := time.Date(*f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		if f.Month != nil {
			start, end = MonthRange(*f.Year, *f.Month)
		}
		q = q.Where("date >= ? AND date < ?", start, end)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", TruncateDate(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", TruncateDate(*f.ToDate))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the non-nil fields of update.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.CategoryID != nil && *update.CategoryID != transaction.CategoryID {
		if _, err := s.categories.GetCategoryByID(userID, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
	}
	if update.Type != nil {
		if err := validateTransactionType(*update.Type); err != nil {
			return nil, err
		}
		updates["type"] = *update.Type
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Date != nil {
		updates["date"] = TruncateDate(*update.Date)
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Omit("Category").Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction deletes a transaction
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Where("id = ? AND user_id = ?", transaction.ID, userID).Delete(&models.Transaction{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
