// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is a login identity. Producers carry their company profile and an
// approval status; admins use the same table with RoleAdmin.
type Account struct {
	BaseModel
	Name          string        `json:"name" gorm:"size:255;not null"`
	Email         string        `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string        `json:"-" gorm:"size:255;not null"`
	Role          Role          `json:"role" gorm:"type:varchar(20);not null;index"`
	Company       string        `json:"company" gorm:"size:255"`
	Phone         string        `json:"phone" gorm:"size:50"`
	Country       string        `json:"country" gorm:"size:100"`
	Address       string        `json:"address" gorm:"type:text"`
	Website       string        `json:"website" gorm:"size:255"`
	AccountStatus AccountStatus `json:"account_status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApprovedAt    *time.Time    `json:"approved_at"`
	LastLoginAt   *time.Time    `json:"last_login_at"`

	// Relationships
	Products []Product `json:"products,omitempty" gorm:"foreignKey:ProducerID"`
}

func (a *Account) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hashedPassword)
	return nil
}

func (a *Account) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanSubmitProducts reports whether the account may have products accepted
// into evaluation.
func (a *Account) CanSubmitProducts() bool {
	return a.Role == RoleProducer && a.AccountStatus == AccountStatusApproved
}
