// internal/services/audit.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
)

// recordAudit writes one audit row through tx so it commits or rolls back
// with the change it describes.
func recordAudit(tx *gorm.DB, actor Actor, action, resourceType string, resourceID uuid.UUID, oldValues, newValues models.JSONB) error {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		OldValues:    oldValues,
		NewValues:    newValues,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	}
	if actor.Authenticated() {
		id := actor.ID
		entry.UserID = &id
	}
	if resourceID != uuid.Nil {
		entry.ResourceID = &resourceID
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit log: %w", err)
	}
	return nil
}
