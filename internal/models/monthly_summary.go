package models

import (
	"time"

	"gorm.io/gorm"
)

// MonthlyBudgetSummary is the persisted income/expense snapshot of a closed month.
// Unlike every other aggregate it does not follow later ledger edits.
// No Base embed, no soft deletes: rows are overwritten in place by upsert.
type MonthlyBudgetSummary struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_summary_period" json:"user_id"`
	Month         int       `gorm:"not null;uniqueIndex:idx_monthly_summary_period" json:"month"`
	Year          int       `gorm:"not null;uniqueIndex:idx_monthly_summary_period" json:"year"`
	TotalIncome   int64     `gorm:"type:bigint;not null" json:"total_income"`
	TotalExpenses int64     `gorm:"type:bigint;not null" json:"total_expenses"`
	Balance       int64     `gorm:"type:bigint;not null" json:"balance"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (m *MonthlyBudgetSummary) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
