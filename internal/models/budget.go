package models

// Budget is the planned spend for one category in one calendar month.
// At most one budget exists per (user, category, month, year).
type Budget struct {
	Base
	UserID     string `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_period" json:"user_id"`
	CategoryID string `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_period" json:"category_id"`
	Name       string `gorm:"not null" json:"name"`
	Amount     int64  `gorm:"type:bigint;not null" json:"amount"`
	Month      int    `gorm:"not null;uniqueIndex:idx_budgets_period" json:"month"`
	Year       int    `gorm:"not null;uniqueIndex:idx_budgets_period" json:"year"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
}
