// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL, stored as text on SQLite
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// CheckMap holds the named boolean quality checks of an evaluation.
type CheckMap map[string]bool

func (m CheckMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]bool{})
	}
	return json.Marshal(m)
}

func (m *CheckMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Enums
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleProducer Role = "PRODUCER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProducer:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "PENDING"
	AccountStatusApproved AccountStatus = "APPROVED"
	AccountStatusRejected AccountStatus = "REJECTED"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusApproved, AccountStatusRejected:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationAccountApproved   NotificationType = "account_approved"
	NotificationAccountRejected   NotificationType = "account_rejected"
	NotificationProductEvaluated  NotificationType = "product_evaluated"
	NotificationProductRejected   NotificationType = "product_rejected"
	NotificationCertificateIssued NotificationType = "certificate_issued"
)
