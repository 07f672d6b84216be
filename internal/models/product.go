// internal/models/product.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	ProducerID        uuid.UUID      `json:"producer_id" gorm:"type:uuid;not null;index"`
	CategoryID        *uuid.UUID     `json:"category_id" gorm:"type:uuid;index"`
	Name              string         `json:"name" gorm:"size:255;not null"`
	Description       string         `json:"description" gorm:"type:text"`
	Volume            string         `json:"volume,omitempty" gorm:"size:50"`
	Brand             string         `json:"brand,omitempty" gorm:"size:255"`
	ProductionCountry string         `json:"production_country,omitempty" gorm:"size:100"`
	Vintage           *int           `json:"vintage,omitempty"`
	Ingredients       pq.StringArray `json:"ingredients,omitempty" gorm:"type:text"`
	ImageURL          string         `json:"image_url,omitempty" gorm:"type:text"`
	Status            ProductStatus  `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SubmittedAt       time.Time      `json:"submitted_at" gorm:"not null;<-:create"`

	// Relationships
	Producer    *Account     `json:"producer,omitempty" gorm:"foreignKey:ProducerID"`
	Category    *Category    `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Evaluation  *Evaluation  `json:"evaluation,omitempty" gorm:"foreignKey:ProductID"`
	Certificate *Certificate `json:"certificate,omitempty" gorm:"foreignKey:ProductID"`
}

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url,omitempty" gorm:"type:text"`
}

func (Category) TableName() string {
	return "categories"
}
