package models

import (
	"time"

	"budgetapp/internal/uuid"

	"gorm.io/gorm"
)

// Base is embedded by the mutable, user-owned entities. Deletes are soft
// unless a service deletes Unscoped.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// Record is embedded by append-only rows, which are never updated or
// soft-deleted.
type Record struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Record) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// assignID gives a new row a time-ordered UUIDv7 unless the caller chose one.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.New()
	}
}
