// internal/services/evaluation_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/metrics"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type EvaluationService struct {
	db                  *gorm.DB
	clock               clock.Clock
	certificates        *CertificateService
	notificationService *NotificationService
	metrics             *metrics.Collector
}

// SubmitEvaluationRequest is the admin's completed evaluation form. Any
// aggregate score the client computed is ignored.
type SubmitEvaluationRequest struct {
	ProductID         uuid.UUID       `json:"product_id" validate:"required"`
	Appearance        *float64        `json:"appearance" validate:"required,min=0,max=10"`
	Aroma             *float64        `json:"aroma" validate:"required,min=0,max=10"`
	Taste             *float64        `json:"taste" validate:"required,min=0,max=10"`
	Aftertaste        *float64        `json:"aftertaste" validate:"required,min=0,max=10"`
	Harmony           *float64        `json:"harmony" validate:"required,min=0,max=10"`
	Attributes        map[string]bool `json:"attributes,omitempty"`
	TastingNotes      string          `json:"tasting_notes,omitempty"`
	TechnicalNotes    string          `json:"technical_notes,omitempty"`
	Recommendations   string          `json:"recommendations,omitempty"`
	CreateCertificate bool            `json:"create_certificate"`
	AwardLevel        string          `json:"award_level,omitempty" validate:"omitempty,award_level"`
	IsPublished       *bool           `json:"is_published,omitempty"`
}

type SubmitResult struct {
	Evaluation     *models.Evaluation   `json:"evaluation"`
	Certificate    *models.Certificate  `json:"certificate,omitempty"`
	Status         models.ProductStatus `json:"status"`
	SuggestedAward models.AwardLevel    `json:"suggested_award"`
	Warnings       []string             `json:"warnings,omitempty"`
}

func NewEvaluationService(db *gorm.DB, clk clock.Clock, certificates *CertificateService,
	notificationService *NotificationService, collector *metrics.Collector) *EvaluationService {
	return &EvaluationService{
		db:                  db,
		clock:               clk,
		certificates:        certificates,
		notificationService: notificationService,
		metrics:             collector,
	}
}

func (r *SubmitEvaluationRequest) scores() models.Scores {
	return models.Scores{
		Appearance: *r.Appearance,
		Aroma:      *r.Aroma,
		Taste:      *r.Taste,
		Aftertaste: *r.Aftertaste,
		Harmony:    *r.Harmony,
	}
}

// Submit saves the evaluation and, when asked with a real award, certifies
// the product. The evaluation and the EVALUATED status commit first; the
// certificate and the CERTIFIED status commit in a second transaction. If
// the second one fails the caller gets a *PartialFailureError and the
// product stays EVALUATED.
func (s *EvaluationService) Submit(ctx context.Context, actor Actor, req *SubmitEvaluationRequest) (*SubmitResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	award := models.AwardNone
	if req.AwardLevel != "" {
		award, _ = models.ParseAward(req.AwardLevel)
	}

	result := &SubmitResult{}
	var product *models.Product
	var notice *models.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = loadProduct(tx, req.ProductID)
		if err != nil {
			return err
		}
		if !product.Status.CanSubmitEvaluation() {
			return fmt.Errorf("cannot evaluate a %s product: %w", product.Status, ErrConflict)
		}

		evaluation, err := s.upsertEvaluation(tx, actor, product.ID, req)
		if err != nil {
			return err
		}
		result.Evaluation = evaluation

		if err := transitionStatus(tx, product.ID, product.Status, models.ProductStatusEvaluated); err != nil {
			return err
		}
		previous := product.Status
		product.Status = models.ProductStatusEvaluated

		if !req.CreateCertificate || !award.Certifiable() {
			notice = newNotification(product.ProducerID, models.NotificationProductEvaluated,
				"Product evaluated",
				fmt.Sprintf("Your product %q has been evaluated.", product.Name),
				"product", product.ID)
			if err := s.notificationService.Notify(tx, notice); err != nil {
				return err
			}
		}

		return recordAudit(tx, actor, "evaluation.submit", "product", product.ID,
			models.JSONB{"status": previous},
			models.JSONB{"status": product.Status, "total_score": evaluation.TotalScore})
	})
	if err != nil {
		s.metrics.EvaluationSubmitted("failed")
		return nil, err
	}

	result.Status = product.Status
	result.SuggestedAward = models.SuggestedAward(result.Evaluation.TotalScore)

	if !req.CreateCertificate || !award.Certifiable() {
		if req.CreateCertificate {
			result.Warnings = append(result.Warnings, "award level is NONE, no certificate was issued")
		}
		s.metrics.EvaluationSubmitted("evaluated")
		s.notificationService.Deliver(loadAccountQuietly(s.db.WithContext(ctx), product.ProducerID), notice)
		return result, nil
	}

	if award != result.SuggestedAward {
		result.Warnings = append(result.Warnings, fmt.Sprintf("award %s differs from %s suggested for a score of %.2f",
			award, result.SuggestedAward, result.Evaluation.TotalScore))
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	var certificate *models.Certificate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		certificate, notice, err = s.certificates.issueInTx(tx, actor, product, award, published)
		return err
	})
	if err != nil {
		s.metrics.EvaluationSubmitted("partial")
		s.metrics.PartialFailure()
		product.Status = models.ProductStatusEvaluated

		logrus.WithError(err).WithFields(logrus.Fields{
			"product_id":    product.ID,
			"evaluation_id": result.Evaluation.ID,
		}).Error("Evaluation saved but certificate issuance failed")

		return nil, &PartialFailureError{
			ProductID:    product.ID,
			EvaluationID: result.Evaluation.ID,
			Status:       models.ProductStatusEvaluated,
			Err:          err,
		}
	}

	result.Certificate = certificate
	result.Status = product.Status
	s.metrics.EvaluationSubmitted("certified")
	s.certificates.afterIssue(ctx, product, certificate, notice)

	return result, nil
}

// upsertEvaluation keeps exactly one evaluation row per product; the newest
// submission overwrites the previous one.
func (s *EvaluationService) upsertEvaluation(tx *gorm.DB, actor Actor, productID uuid.UUID, req *SubmitEvaluationRequest) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	err := tx.Where("product_id = ?", productID).First(&evaluation).Error
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}

	evaluation.ProductID = productID
	evaluation.SetScores(req.scores())
	evaluation.Attributes = models.CheckMap(req.Attributes)
	if evaluation.Attributes == nil {
		evaluation.Attributes = models.CheckMap{}
	}
	evaluation.TastingNotes = req.TastingNotes
	evaluation.TechnicalNotes = req.TechnicalNotes
	evaluation.Recommendations = req.Recommendations
	evaluation.EvaluatedAt = s.clock.Now()
	evaluation.EvaluatedBy = actor.ID

	if exists {
		err = tx.Save(&evaluation).Error
	} else {
		err = tx.Create(&evaluation).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("evaluation saved concurrently: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	return &evaluation, nil
}

func (s *EvaluationService) GetEvaluation(ctx context.Context, actor Actor, productID uuid.UUID) (*models.Evaluation, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	product, err := loadProduct(s.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, product.ProducerID) {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	var evaluation models.Evaluation
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).First(&evaluation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("evaluation for product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &evaluation, nil
}

// EvaluationForm returns the prefill for the admin evaluation screen given
// the screen's local draft, if any.
func (s *EvaluationService) EvaluationForm(ctx context.Context, actor Actor, productID uuid.UUID, draft *EvaluationDraft) (*EvaluationForm, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Preload("Evaluation").Preload("Certificate").First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	form := ResolveEvaluationForm(product.Evaluation, draft)
	if form.Source == FormSourceServer && product.Certificate != nil {
		form.AwardLevel = product.Certificate.AwardLevel
	}
	form.ProductStatus = product.Status

	return &form, nil
}
