package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/logger"
	"budgetapp/internal/models"
)

// summaryFanOut caps how many users are snapshotted concurrently.
const summaryFanOut = 4

// summaryService persists monthly income/expense snapshots.
type summaryService struct {
	db *gorm.DB
}

// NewSummaryService creates a new SummaryServicer.
func NewSummaryService(db *gorm.DB) SummaryServicer {
	return &summaryService{db: db}
}

// RecordMonthlySummary computes the user's totals for the month and upserts
// the snapshot. Recording the same month twice overwrites the first row.
func (s *summaryService) RecordMonthlySummary(userID string, year, month int) (*models.MonthlyBudgetSummary, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	start, end := MonthRange(year, month)
	totals, err := sumByType(s.db, userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &models.MonthlyBudgetSummary{
		UserID:        userID,
		Month:         month,
		Year:          year,
		TotalIncome:   totals.Income,
		TotalExpenses: totals.Expense,
		Balance:       totals.Income - totals.Expense,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_income", "total_expenses", "balance", "updated_at"}),
	}).Create(summary).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stored models.MonthlyBudgetSummary
	if err := s.db.Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		First(&stored).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stored, nil
}

// RecordPreviousMonthForAllUsers snapshots the month before now for every
// active user and returns how many snapshots were written.
func (s *summaryService) RecordPreviousMonthForAllUsers(ctx context.Context, now time.Time) (int, error) {
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())

	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ?", true).
		Pluck("id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryFanOut)
	for _, userID := range userIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := s.RecordMonthlySummary(userID, year, month)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	logger.Get().Infow("Recorded monthly summaries", "year", year, "month", month, "users", len(userIDs))
	return len(userIDs), nil
}

// GetSummaries lists the user's snapshots, newest period first.
func (s *summaryService) GetSummaries(userID string, year *int) ([]models.MonthlyBudgetSummary, error) {
	q := s.db.Where("user_id = ?", userID)
	if year != nil {
		q = q.Where("year = ?", *year)
	}

	var summaries []models.MonthlyBudgetSummary
	if err := q.Order("year DESC").Order("month DESC").Find(&summaries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if summaries == nil {
		summaries = []models.MonthlyBudgetSummary{}
	}
	return summaries, nil
}
