package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/money"
)

// Default trailing windows, in days.
const (
	TrendsWindowDays      = 180
	SavingsRateWindowDays = 365
)

// reportService computes on-demand rollups over the ledger.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return apperrors.ErrInvalidPeriod
	}
	if year < 1 || year > 9999 {
		return apperrors.WithMessage(apperrors.ErrInvalidPeriod, "year is out of range")
	}
	return nil
}

type typeTotal struct {
	Type  models.TransactionType
	Total int64
	Count int64
}

type periodTotals struct {
	Income  int64
	Expense int64
	Count   int64
}

// sumByType totals the user's transactions in [start, end) grouped by type.
// A type with no rows totals 0.
func sumByType(db *gorm.DB, userID string, start, end time.Time) (periodTotals, error) {
	var rows []typeTotal
	err := db.Model(&models.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return periodTotals{}, err
	}

	var totals periodTotals
	for _, r := range rows {
		switch r.Type {
		case models.TransactionTypeIncome:
			totals.Income = r.Total
		case models.TransactionTypeExpense:
			totals.Expense = r.Total
		}
		totals.Count += r.Count
	}
	return totals, nil
}

// MonthlySummary returns income, expense and balance for one month.
func (s *reportService) MonthlySummary(userID string, year, month int) (*MonthlySummary, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	start, end := MonthRange(year, month)
	totals, err := sumByType(s.db, userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &MonthlySummary{
		Year:             year,
		Month:            month,
		MonthName:        time.Month(month).String(),
		IncomeTotal:      totals.Income,
		ExpenseTotal:     totals.Expense,
		Balance:          totals.Income - totals.Expense,
		TransactionCount: totals.Count,
	}, nil
}

// TransactionStats totals income and expenses over the filtered ledger.
// An empty filter covers every transaction of the user.
func (s *reportService) TransactionStats(userID string, filter TransactionFilter) (*LedgerStats, error) {
	if filter.Month != nil && filter.Year == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPeriod, "month requires year")
	}
	if filter.Year != nil {
		month := 1
		if filter.Month != nil {
			month = *filter.Month
		}
		if err := validatePeriod(*filter.Year, month); err != nil {
			return nil, err
		}
	}

	q := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	q = applyTransactionFilters(q, filter)

	var rows []typeTotal
	if err := q.Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &LedgerStats{}
	for _, r := range rows {
		switch r.Type {
		case models.TransactionTypeIncome:
			stats.IncomeTotal = r.Total
		case models.TransactionTypeExpense:
			stats.ExpenseTotal = r.Total
		}
		stats.TransactionCount += r.Count
	}
	stats.Balance = stats.IncomeTotal - stats.ExpenseTotal
	return stats, nil
}

type categoryTotal struct {
	CategoryID   string
	CategoryName string
	Total        int64
}

// CategoryBreakdown splits one month's expenses by category, largest first.
// Months without expenses yield an empty slice.
func (s *reportService) CategoryBreakdown(userID string, year, month int) ([]CategoryBreakdownItem, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	start, end := MonthRange(year, month)
	var rows []categoryTotal
	err := s.db.Model(&models.Transaction{}).
		Select("transactions.category_id AS category_id, categories.name AS category_name, SUM(transactions.amount) AS total").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ? AND transactions.date >= ? AND transactions.date < ?",
			userID, models.TransactionTypeExpense, start, end).
		Group("transactions.category_id, categories.name").
		Order("total DESC, categories.name").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var totalExpenses int64
	for _, r := range rows {
		totalExpenses += r.Total
	}

	items := make([]CategoryBreakdownItem, 0, len(rows))
	if totalExpenses <= 0 {
		return items, nil
	}
	for _, r := range rows {
		items = append(items, CategoryBreakdownItem{
			CategoryID:   r.CategoryID,
			CategoryName: r.CategoryName,
			Amount:       r.Total,
			Percentage:   money.Percent(r.Total, totalExpenses),
		})
	}
	return items, nil
}

type datedAmount struct {
	Date   time.Time
	Type   models.TransactionType
	Amount int64
}

type monthKey struct {
	Year  int
	Month time.Month
}

type monthTotals struct {
	Income  int64
	Expense int64
}

// foldByMonth loads the user's transactions in [start, end) and sums them per
// calendar month. The returned keys are sorted ascending.
func (s *reportService) foldByMonth(userID string, start, end time.Time) ([]monthKey, map[monthKey]*monthTotals, error) {
	var rows []datedAmount
	err := s.db.Model(&models.Transaction{}).
		Select("date, type, amount").
		Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	sums := make(map[monthKey]*monthTotals)
	var keys []monthKey
	for _, r := range rows {
		d := r.Date.UTC()
		k := monthKey{Year: d.Year(), Month: d.Month()}
		m, ok := sums[k]
		if !ok {
			m = &monthTotals{}
			sums[k] = m
			keys = append(keys, k)
		}
		if r.Type == models.TransactionTypeIncome {
			m.Income += r.Amount
		} else {
			m.Expense += r.Amount
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
	return keys, sums, nil
}

// trailingWindow returns [asOf-days, asOf] as a half-open date range.
func trailingWindow(asOf time.Time, days int) (time.Time, time.Time) {
	end := TruncateDate(asOf)
	return end.AddDate(0, 0, -days), end.AddDate(0, 0, 1)
}

func monthLabel(k monthKey) string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// YearlyComparison returns income and expenses per month of a year.
// Months without transactions are omitted.
func (s *reportService) YearlyComparison(userID string, year int) ([]MonthComparison, error) {
	if err := validatePeriod(year, 1); err != nil {
		return nil, err
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	keys, sums, err := s.foldByMonth(userID, start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]MonthComparison, 0, len(keys))
	for _, k := range keys {
		result = append(result, MonthComparison{
			Month:    int(k.Month),
			Income:   sums[k].Income,
			Expenses: sums[k].Expense,
		})
	}
	return result, nil
}

// Trends returns per-month income, expenses and savings over the trailing
// window ending at asOf.
func (s *reportService) Trends(userID string, asOf time.Time, windowDays int) ([]TrendPoint, error) {
	if windowDays <= 0 {
		windowDays = TrendsWindowDays
	}

	start, end := trailingWindow(asOf, windowDays)
	keys, sums, err := s.foldByMonth(userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		m := sums[k]
		result = append(result, TrendPoint{
			Month:    monthLabel(k),
			Year:     k.Year,
			MonthNum: int(k.Month),
			Income:   m.Income,
			Expenses: m.Expense,
			Savings:  m.Income - m.Expense,
		})
	}
	return result, nil
}

// SavingsRate returns the per-month savings rate over the trailing window
// ending at asOf. Months without income have a rate of 0.
func (s *reportService) SavingsRate(userID string, asOf time.Time, windowDays int) ([]SavingsRatePoint, error) {
	if windowDays <= 0 {
		windowDays = SavingsRateWindowDays
	}

	start, end := trailingWindow(asOf, windowDays)
	keys, sums, err := s.foldByMonth(userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]SavingsRatePoint, 0, len(keys))
	for _, k := range keys {
		m := sums[k]
		result = append(result, SavingsRatePoint{
			Month:       monthLabel(k),
			Year:        k.Year,
			MonthNum:    int(k.Month),
			Income:      m.Income,
			Expenses:    m.Expense,
			SavingsRate: money.SavingsRate(m.Income, m.Expense),
		})
	}
	return result, nil
}
