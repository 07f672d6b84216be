// internal/models/certificate.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Certificate struct {
	BaseModel
	ProductID         uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;uniqueIndex"`
	CertificateNumber string     `json:"certificate_number" gorm:"size:32;not null;uniqueIndex"`
	AwardLevel        AwardLevel `json:"award_level" gorm:"type:varchar(20);not null;index"`
	IsPublished       bool       `json:"is_published" gorm:"not null;index"`
	IssueDate         time.Time  `json:"issue_date" gorm:"not null;index"`
	PDFURL            string     `json:"pdf_url,omitempty" gorm:"type:text"`
	IssuedBy          uuid.UUID  `json:"issued_by" gorm:"type:uuid;not null"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// CertificateSequence is the per-year counter behind certificate numbers.
type CertificateSequence struct {
	Year      int `gorm:"primaryKey;autoIncrement:false"`
	LastValue int `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// FormatCertificateNumber renders prefix-YYYY-NNNNNN.
func FormatCertificateNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, seq)
}

// QRCode links a scannable code to a product's public verification page.
type QRCode struct {
	BaseModel
	ProductID   uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;uniqueIndex"`
	Code        string     `json:"code" gorm:"size:32;not null;uniqueIndex"`
	TargetURL   string     `json:"target_url" gorm:"type:text;not null"`
	ScanCount   int64      `json:"scan_count" gorm:"not null;default:0"`
	LastScanAt  *time.Time `json:"last_scan_at"`
	GeneratedBy uuid.UUID  `json:"generated_by" gorm:"type:uuid"`
}

func (QRCode) TableName() string {
	return "qr_codes"
}
