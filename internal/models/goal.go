package models

import "time"

// Goal is a savings target. CurrentAmount is always the sum of the goal's
// contributions and is only written by the contribution path.
type Goal struct {
	Base
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string     `gorm:"not null" json:"name"`
	Description   string     `json:"description"`
	TargetAmount  int64      `gorm:"type:bigint;not null" json:"target_amount"`
	CurrentAmount int64      `gorm:"type:bigint;not null;default:0" json:"current_amount"`
	Deadline      *time.Time `gorm:"type:date" json:"deadline,omitempty"`

	Contributions []GoalContribution `gorm:"foreignKey:GoalID;constraint:OnDelete:CASCADE" json:"contributions,omitempty"`
}

// GoalContribution is an append-only deposit towards a goal.
type GoalContribution struct {
	Record
	GoalID      string    `gorm:"type:uuid;not null;index" json:"goal_id"`
	Amount      int64     `gorm:"type:bigint;not null" json:"amount"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	Description string    `json:"description"`
}
