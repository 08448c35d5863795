package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/money"
	"budgetapp/internal/pagination"
)

// ContributionDateLayout is the only accepted contribution date format.
const ContributionDateLayout = "2006-01-02"

// goalService handles savings goals and their contribution log.
type goalService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB) GoalServicer {
	return &goalService{db: db, now: time.Now}
}

// CreateGoal creates a goal with no contributions.
func (s *goalService) CreateGoal(userID, name, description string, targetAmount int64, deadline *time.Time) (*models.Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if targetAmount < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "target amount cannot be negative")
	}
	if deadline != nil {
		d := TruncateDate(*deadline)
		deadline = &d
	}

	goal := &models.Goal{
		UserID:       userID,
		Name:         name,
		Description:  description,
		TargetAmount: targetAmount,
		Deadline:     deadline,
	}
	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals returns a paginated list of the user's goals.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	query := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)
	result, err := pagination.Find[models.Goal](query, page, pagination.OrderBy("created_at DESC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetGoalByID returns a goal if it belongs to the user.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields of update.
func (s *goalService) UpdateGoal(userID, goalID string, update GoalUpdate) (*models.Goal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name cannot be empty")
		}
		updates["name"] = name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.TargetAmount != nil {
		if *update.TargetAmount < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "target amount cannot be negative")
		}
		updates["target_amount"] = *update.TargetAmount
	}
	if update.ClearDeadline {
		updates["deadline"] = nil
	} else if update.Deadline != nil {
		updates["deadline"] = TruncateDate(*update.Deadline)
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetGoalByID(userID, goalID)
}

// DeleteGoal removes a goal and its contribution log.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&models.GoalContribution{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// progressOf derives the read-only progress fields of a goal.
func progressOf(goal models.Goal, today time.Time) GoalProgress {
	p := GoalProgress{
		Goal:            goal,
		RemainingAmount: goal.TargetAmount - goal.CurrentAmount,
		Progress:        money.Percent(goal.CurrentAmount, goal.TargetAmount),
		IsCompleted:     goal.CurrentAmount >= goal.TargetAmount,
	}
	if p.RemainingAmount < 0 {
		p.RemainingAmount = 0
	}
	if goal.Deadline != nil {
		days := int(TruncateDate(*goal.Deadline).Sub(TruncateDate(today)).Hours() / 24)
		if days < 0 {
			days = 0
		}
		p.DaysLeft = &days
	}
	return p
}

// GetGoalsProgress lists every goal of the user with its derived progress.
func (s *goalService) GetGoalsProgress(userID string, today time.Time) ([]GoalProgress, error) {
	var goals []models.Goal
	if err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		result = append(result, progressOf(g, today))
	}
	return result, nil
}

// AddContribution appends a contribution and recomputes the goal's current
// amount from the whole log. Both steps run in one transaction holding the
// goal row lock, so concurrent contributions cannot lose an update.
// An empty date means today.
func (s *goalService) AddContribution(userID, goalID string, amount int64, date, description string) (*GoalProgress, *models.GoalContribution, error) {
	if amount <= 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "contribution amount must be greater than zero")
	}

	today := TruncateDate(s.now())
	contributionDate := today
	if date = strings.TrimSpace(date); date != "" {
		parsed, err := time.Parse(ContributionDateLayout, date)
		if err != nil {
			return nil, nil, apperrors.ErrInvalidDate
		}
		contributionDate = parsed
	}

	var goal models.Goal
	var contribution *models.GoalContribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", goalID, userID).
			First(&goal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGoalNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		contribution = &models.GoalContribution{
			GoalID:      goal.ID,
			Amount:      amount,
			Date:        contributionDate,
			Description: description,
		}
		if err := tx.Create(contribution).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var total int64
		if err := tx.Model(&models.GoalContribution{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("goal_id = ?", goal.ID).
			Scan(&total).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(&models.Goal{}).
			Where("id = ?", goal.ID).
			Update("current_amount", total).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		goal.CurrentAmount = total
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	progress := progressOf(goal, today)
	return &progress, contribution, nil
}

// GetContributions returns a goal's contributions, newest first.
func (s *goalService) GetContributions(userID, goalID string) ([]models.GoalContribution, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	var contributions []models.GoalContribution
	if err := s.db.Where("goal_id = ?", goal.ID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if contributions == nil {
		contributions = []models.GoalContribution{}
	}
	return contributions, nil
}
