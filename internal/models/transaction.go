package models

import "time"

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Label returns the human-readable type name used in exports.
func (t TransactionType) Label() string {
	if t == TransactionTypeIncome {
		return "Income"
	}
	return "Expense"
}

// Transaction represents a single income or expense entry in a user's ledger.
// Amount is always positive and stored in cents; Type carries the direction.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_user_date" json:"user_id"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"type:date;not null;index:idx_transactions_user_date" json:"date"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
