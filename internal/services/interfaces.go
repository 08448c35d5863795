package services

import (
	"context"
	"io"
	"time"

	"budgetapp/internal/jobs"
	"budgetapp/internal/ledgercsv"
	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name, description, icon, color string) (*models.Category, error)
	GetOrCreateCategory(userID, name string) (*models.Category, bool, error)
	ProvisionDefaultCategories(userID string) (int, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoriesByTransactionType(userID string, transactionType models.TransactionType) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Year       *int
	Month      *int
	Type       *models.TransactionType
	CategoryID *string
	MinAmount  *int64
	MaxAmount  *int64
}

// TransactionUpdate holds the fields of a transaction that may be changed.
// Nil fields are left untouched.
type TransactionUpdate struct {
	CategoryID  *string
	Type        *models.TransactionType
	Amount      *int64
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, categoryID string, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// MonthlySummary is the income/expense rollup of one calendar month.
type MonthlySummary struct {
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	MonthName        string `json:"month_name"`
	IncomeTotal      int64  `json:"income_total"`
	ExpenseTotal     int64  `json:"expense_total"`
	Balance          int64  `json:"balance"`
	TransactionCount int64  `json:"transaction_count"`
}

// CategoryBreakdownItem is one category's share of a month's expenses.
type CategoryBreakdownItem struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Amount       int64   `json:"amount"`
	Percentage   float64 `json:"percentage"`
}

// MonthComparison holds one month of a yearly comparison.
type MonthComparison struct {
	Month    int   `json:"month"`
	Income   int64 `json:"income"`
	Expenses int64 `json:"expenses"`
}

// TrendPoint holds one month of a trailing-window trend.
type TrendPoint struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	MonthNum int    `json:"month_number"`
	Income   int64  `json:"income"`
	Expenses int64  `json:"expenses"`
	Savings  int64  `json:"savings"`
}

// SavingsRatePoint holds one month of the savings-rate series.
type SavingsRatePoint struct {
	Month       string  `json:"month"`
	Year        int     `json:"year"`
	MonthNum    int     `json:"month_number"`
	Income      int64   `json:"income"`
	Expenses    int64   `json:"expenses"`
	SavingsRate float64 `json:"savings_rate"`
}

// LedgerStats totals the transactions matched by a TransactionFilter.
type LedgerStats struct {
	IncomeTotal      int64 `json:"income_total"`
	ExpenseTotal     int64 `json:"expense_total"`
	Balance          int64 `json:"balance"`
	TransactionCount int64 `json:"transaction_count"`
}

// ReportServicer defines the read-side aggregations over a user's ledger.
type ReportServicer interface {
	MonthlySummary(userID string, year, month int) (*MonthlySummary, error)
	TransactionStats(userID string, filter TransactionFilter) (*LedgerStats, error)
	CategoryBreakdown(userID string, year, month int) ([]CategoryBreakdownItem, error)
	YearlyComparison(userID string, year int) ([]MonthComparison, error)
	Trends(userID string, asOf time.Time, windowDays int) ([]TrendPoint, error)
	SavingsRate(userID string, asOf time.Time, windowDays int) ([]SavingsRatePoint, error)
}

// BudgetStatus is a budget measured against the ledger for its period.
type BudgetStatus struct {
	BudgetID     string  `json:"budget_id"`
	Name         string  `json:"name"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Month        int     `json:"month"`
	Year         int     `json:"year"`
	Amount       int64   `json:"amount"`
	Spent        int64   `json:"spent"`
	Remaining    int64   `json:"remaining"`
	Progress     float64 `json:"progress"`
	Overspent    bool    `json:"overspent"`
}

// BudgetOverview compares all planned budgets of a period with all expenses.
type BudgetOverview struct {
	Month         int     `json:"month"`
	Year          int     `json:"year"`
	TotalBudget   int64   `json:"total_budget"`
	TotalExpenses int64   `json:"total_expenses"`
	Remaining     int64   `json:"remaining"`
	Progress      float64 `json:"progress"`
	Overspent     bool    `json:"overspent"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, categoryID, name string, amount int64, month, year int) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, month, year *int) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, name string, amount *int64) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetStatus(userID string, year, month int) ([]BudgetStatus, error)
	GetBudgetOverview(userID string, year, month int) (*BudgetOverview, error)
}

// GoalProgress is a goal with its derived progress fields.
type GoalProgress struct {
	models.Goal
	RemainingAmount int64   `json:"remaining_amount"`
	Progress        float64 `json:"progress"`
	IsCompleted     bool    `json:"is_completed"`
	DaysLeft        *int    `json:"days_left"`
}

// GoalUpdate holds the editable fields of a goal. CurrentAmount is absent:
// it only changes through contributions.
type GoalUpdate struct {
	Name          *string
	Description   *string
	TargetAmount  *int64
	Deadline      *time.Time
	ClearDeadline bool
}

// GoalServicer defines the contract for goal-related business logic.
type GoalServicer interface {
	CreateGoal(userID, name, description string, targetAmount int64, deadline *time.Time) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, update GoalUpdate) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	GetGoalsProgress(userID string, today time.Time) ([]GoalProgress, error)
	AddContribution(userID, goalID string, amount int64, date, description string) (*GoalProgress, *models.GoalContribution, error)
	GetContributions(userID, goalID string) ([]models.GoalContribution, error)
}

// SummaryServicer defines the contract for persisted monthly snapshots.
type SummaryServicer interface {
	RecordMonthlySummary(userID string, year, month int) (*models.MonthlyBudgetSummary, error)
	RecordPreviousMonthForAllUsers(ctx context.Context, now time.Time) (int, error)
	GetSummaries(userID string, year *int) ([]models.MonthlyBudgetSummary, error)
}

// ImportResult is the payload of a finished import task.
type ImportResult struct {
	Success             bool     `json:"success"`
	TransactionsCreated int      `json:"transactions_created"`
	Errors              []string `json:"errors"`
}

// ExportParams selects the transactions of an export task.
type ExportParams struct {
	Year  *int `json:"year,omitempty"`
	Month *int `json:"month,omitempty"`
}

// ExportArtifact is a finished export's CSV file, opened for reading.
// The caller must close Reader.
type ExportArtifact struct {
	Filename string
	Reader   io.ReadCloser
}

// BulkServicer defines the contract for asynchronous CSV import and export.
// ImportTransactions and ExportTransactions are the job bodies; they also
// serve synchronous callers such as the operator CLI.
type BulkServicer interface {
	ImportTransactions(ctx context.Context, userID string, r io.Reader) (*ImportResult, error)
	ExportTransactions(ctx context.Context, userID string, params ExportParams) ([]ledgercsv.ExportRow, error)
	SubmitImport(ctx context.Context, userID string, file io.Reader) (*models.Task, error)
	SubmitExport(ctx context.Context, userID string, params ExportParams) (*models.Task, error)
	TaskStatus(ctx context.Context, userID, taskID string) (*jobs.Status, error)
	OpenExport(ctx context.Context, userID, taskID string) (*ExportArtifact, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
