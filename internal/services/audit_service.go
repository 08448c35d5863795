package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"budgetapp/internal/logger"
	"budgetapp/internal/models"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes one audit row. A failed write is logged and swallowed so it never
// fails the ledger operation being audited.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	log := logger.With("action", action, "user_id", userID, "resource_id", resourceID)

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}

	if encoded, err := encodeChanges(changes); err != nil {
		log.Warnw("Dropping unencodable audit changes", "error", err)
	} else {
		entry.Changes = encoded
	}

	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("Failed to write audit log", "resource_type", resourceType, "error", err)
	}
}

// encodeChanges renders the non-nil values of changes as a JSON object.
// Nothing left to record yields "".
func encodeChanges(changes map[string]interface{}) (string, error) {
	kept := make(map[string]interface{}, len(changes))
	for k, v := range changes {
		if v != nil {
			kept[k] = v
		}
	}
	if len(kept) == 0 {
		return "", nil
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
