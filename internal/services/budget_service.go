package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/money"
	"budgetapp/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates the budget of a category for one month.
func (s *budgetService) CreateBudget(userID, categoryID, name string, amount int64, month, year int) (*models.Budget, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "budget amount cannot be negative")
	}

	// Verify category exists and belongs to user
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND month = ? AND year = ?", userID, categoryID, month, year).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateBudget
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = category.Name
	}

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       name,
		Amount:     amount,
		Month:      month,
		Year:       year,
	}

	if err := s.db.Omit("Category").Create(budget).Error; err != nil {
		// the unique index catches a concurrent duplicate
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	budget.Category = category

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets, optionally limited to a month and year.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, month, year *int) (*pagination.PageResponse[models.Budget], error) {
	query := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if month != nil {
		query = query.Where("month = ?", *month)
	}
	if year != nil {
		query = query.Where("year = ?", *year)
	}

	result, err := pagination.Find[models.Budget](query, page,
		pagination.Preload("Category"),
		pagination.OrderBy("year DESC, month DESC, name"),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates a budget's name or planned amount. The category and
// period identify the budget and cannot change.
func (s *budgetService) UpdateBudget(userID, budgetID string, name string, amount *int64) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if amount != nil {
		if *amount < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "budget amount cannot be negative")
		}
		updates["amount"] = *amount
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Omit("Category").Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget removes a budget. The row is deleted outright so the
// period can be budgeted again.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Unscoped().Where("id = ? AND user_id = ?", budget.ID, userID).Delete(&models.Budget{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

type categorySpend struct {
	CategoryID string
	Spent      int64
}

// GetBudgetStatus measures every budget of a month against that month's
// expenses. Expenses are summed in one grouped query and matched to budgets
// by category.
func (s *budgetService) GetBudgetStatus(userID string, year, month int) ([]BudgetStatus, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Order("name").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	if len(budgets) == 0 {
		return statuses, nil
	}

	start, end := MonthRange(year, month)
	var rows []categorySpend
	if err := s.db.Model(&models.Transaction{}).
		Select("category_id, COALESCE(SUM(amount), 0) AS spent").
		Where("user_id = ? AND type = ? AND date >= ? AND date < ?", userID, models.TransactionTypeExpense, start, end).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spentByCategory := make(map[string]int64, len(rows))
	for _, r := range rows {
		spentByCategory[r.CategoryID] = r.Spent
	}

	for _, b := range budgets {
		spent := spentByCategory[b.CategoryID]
		statuses = append(statuses, BudgetStatus{
			BudgetID:     b.ID,
			Name:         b.Name,
			CategoryID:   b.CategoryID,
			CategoryName: b.Category.Name,
			Month:        b.Month,
			Year:         b.Year,
			Amount:       b.Amount,
			Spent:        spent,
			Remaining:    b.Amount - spent,
			Progress:     money.Percent(spent, b.Amount),
			Overspent:    spent > b.Amount,
		})
	}
	return statuses, nil
}

// GetBudgetOverview compares the month's total planned budget with all of
// the month's expenses, budgeted category or not.
func (s *budgetService) GetBudgetOverview(userID string, year, month int) (*BudgetOverview, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	var totalBudget int64
	if err := s.db.Model(&models.Budget{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Scan(&totalBudget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	start, end := MonthRange(year, month)
	totals, err := sumByType(s.db, userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &BudgetOverview{
		Month:         month,
		Year:          year,
		TotalBudget:   totalBudget,
		TotalExpenses: totals.Expense,
		Remaining:     totalBudget - totals.Expense,
		Progress:      money.Percent(totals.Expense, totalBudget),
		Overspent:     totals.Expense > totalBudget,
	}, nil
}
