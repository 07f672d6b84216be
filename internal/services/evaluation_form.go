// internal/services/evaluation_form.go
package services

import (
	"github.com/javajoker/tastecert-backend/internal/models"
)

type FormSource string

const (
	FormSourceServer FormSource = "server"
	FormSourceDraft  FormSource = "draft"
	FormSourceEmpty  FormSource = "empty"
)

// EvaluationDraft is the unsaved form state an admin's browser keeps.
type EvaluationDraft struct {
	Appearance      float64         `json:"appearance"`
	Aroma           float64         `json:"aroma"`
	Taste           float64         `json:"taste"`
	Aftertaste      float64         `json:"aftertaste"`
	Harmony         float64         `json:"harmony"`
	Attributes      map[string]bool `json:"attributes,omitempty"`
	TastingNotes    string          `json:"tasting_notes,omitempty"`
	TechnicalNotes  string          `json:"technical_notes,omitempty"`
	Recommendations string          `json:"recommendations,omitempty"`
	AwardLevel      string          `json:"award_level,omitempty"`
}

type EvaluationForm struct {
	Source          FormSource           `json:"source"`
	ProductStatus   models.ProductStatus `json:"product_status,omitempty"`
	Scores          models.Scores        `json:"scores"`
	TotalScore      float64              `json:"total_score"`
	Attributes      models.CheckMap      `json:"attributes"`
	TastingNotes    string               `json:"tasting_notes"`
	TechnicalNotes  string               `json:"technical_notes"`
	Recommendations string               `json:"recommendations"`
	AwardLevel      models.AwardLevel    `json:"award_level"`
	SuggestedAward  models.AwardLevel    `json:"suggested_award"`
}

// ResolveEvaluationForm decides what the evaluation screen shows. A stored
// evaluation always wins; the draft is used only when nothing is stored;
// otherwise the form starts empty.
func ResolveEvaluationForm(server *models.Evaluation, draft *EvaluationDraft) EvaluationForm {
	var form EvaluationForm

	switch {
	case server != nil:
		form = EvaluationForm{
			Source:          FormSourceServer,
			Scores:          server.Scores(),
			Attributes:      server.Attributes,
			TastingNotes:    server.TastingNotes,
			TechnicalNotes:  server.TechnicalNotes,
			Recommendations: server.Recommendations,
			AwardLevel:      models.AwardNone,
		}
	case draft != nil:
		form = EvaluationForm{
			Source: FormSourceDraft,
			Scores: models.Scores{
				Appearance: clampScore(draft.Appearance),
				Aroma:      clampScore(draft.Aroma),
				Taste:      clampScore(draft.Taste),
				Aftertaste: clampScore(draft.Aftertaste),
				Harmony:    clampScore(draft.Harmony),
			},
			Attributes:      models.CheckMap(draft.Attributes),
			TastingNotes:    draft.TastingNotes,
			TechnicalNotes:  draft.TechnicalNotes,
			Recommendations: draft.Recommendations,
			AwardLevel:      models.NormalizeAward(draft.AwardLevel),
		}
	default:
		form = EvaluationForm{
			Source:     FormSourceEmpty,
			AwardLevel: models.AwardNone,
		}
	}

	if form.Attributes == nil {
		form.Attributes = models.CheckMap{}
	}
	form.TotalScore = form.Scores.Mean()
	form.SuggestedAward = models.SuggestedAward(form.TotalScore)

	return form
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	default:
		return v
	}
}
