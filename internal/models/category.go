package models

// Category groups transactions under a user-chosen name. Names are unique
// per user, not globally.
type Category struct {
	Base
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_categories_user_name" json:"user_id"`
	Name        string `gorm:"not null;uniqueIndex:idx_categories_user_name" json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"budgets,omitempty"`
}
