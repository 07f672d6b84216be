// internal/models/evaluation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation holds the sensory scores recorded for one product.
type Evaluation struct {
	BaseModel
	ProductID       uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex"`
	Appearance      float64   `json:"appearance" gorm:"type:decimal(4,2);not null"`
	Aroma           float64   `json:"aroma" gorm:"type:decimal(4,2);not null"`
	Taste           float64   `json:"taste" gorm:"type:decimal(4,2);not null"`
	Aftertaste      float64   `json:"aftertaste" gorm:"type:decimal(4,2);not null"`
	Harmony         float64   `json:"harmony" gorm:"type:decimal(4,2);not null"`
	TotalScore      float64   `json:"total_score" gorm:"not null"`
	Attributes      CheckMap  `json:"attributes" gorm:"type:jsonb"`
	TastingNotes    string    `json:"tasting_notes" gorm:"type:text"`
	TechnicalNotes  string    `json:"technical_notes" gorm:"type:text"`
	Recommendations string    `json:"recommendations" gorm:"type:text"`
	EvaluatedAt     time.Time `json:"evaluated_at" gorm:"not null"`
	EvaluatedBy     uuid.UUID `json:"evaluated_by" gorm:"type:uuid;not null"`
}

// Scores is the five sensory sub-scores as entered by an evaluator.
type Scores struct {
	Appearance float64 `json:"appearance"`
	Aroma      float64 `json:"aroma"`
	Taste      float64 `json:"taste"`
	Aftertaste float64 `json:"aftertaste"`
	Harmony    float64 `json:"harmony"`
}

// Mean returns the arithmetic mean of the five sub-scores.
func (s Scores) Mean() float64 {
	return (s.Appearance + s.Aroma + s.Taste + s.Aftertaste + s.Harmony) / 5
}

func (e *Evaluation) Scores() Scores {
	return Scores{
		Appearance: e.Appearance,
		Aroma:      e.Aroma,
		Taste:      e.Taste,
		Aftertaste: e.Aftertaste,
		Harmony:    e.Harmony,
	}
}

// SetScores copies s into e and recomputes the total.
func (e *Evaluation) SetScores(s Scores) {
	e.Appearance = s.Appearance
	e.Aroma = s.Aroma
	e.Taste = s.Taste
	e.Aftertaste = s.Aftertaste
	e.Harmony = s.Harmony
	e.TotalScore = s.Mean()
}
