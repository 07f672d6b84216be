// internal/services/certificate_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/metrics"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

// NumberAllocator hands out certificate numbers inside the issuing
// transaction.
type NumberAllocator interface {
	Next(tx *gorm.DB, year int) (string, error)
}

type sequenceAllocator struct {
	prefix string
}

// NewSequenceAllocator returns an allocator backed by the per-year
// certificate_sequences row. The increment takes a row lock, so concurrent
// issuers serialize on it until their transactions finish.
func NewSequenceAllocator(prefix string) NumberAllocator {
	return &sequenceAllocator{prefix: prefix}
}

func (a *sequenceAllocator) Next(tx *gorm.DB, year int) (string, error) {
	seed := models.CertificateSequence{Year: year}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", fmt.Errorf("failed to create certificate sequence: %w", err)
	}

	result := tx.Model(&models.CertificateSequence{}).
		Where("year = ?", year).
		Update("last_value", gorm.Expr("last_value + ?", 1))
	if result.Error != nil {
		return "", fmt.Errorf("failed to advance certificate sequence: %w", result.Error)
	}

	var current models.CertificateSequence
	if err := tx.First(&current, "year = ?", year).Error; err != nil {
		return "", fmt.Errorf("failed to read certificate sequence: %w", err)
	}

	return models.FormatCertificateNumber(a.prefix, year, current.LastValue), nil
}

type CertificateService struct {
	db                  *gorm.DB
	cfg                 *config.Config
	clock               clock.Clock
	allocator           NumberAllocator
	directory           *DirectoryService
	notificationService *NotificationService
	metrics             *metrics.Collector
}

type IssueCertificateRequest struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	AwardLevel  string    `json:"award_level" validate:"required,award_level"`
	IsPublished *bool     `json:"is_published,omitempty"`
}

type UpdateCertificateRequest struct {
	AwardLevel  *string `json:"award_level,omitempty" validate:"omitempty,award_level"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

type VerificationResult struct {
	Valid             bool        `json:"valid"`
	CertificateNumber string      `json:"certificate_number"`
	Certificate       *WinnerView `json:"certificate,omitempty"`
}

func NewCertificateService(db *gorm.DB, cfg *config.Config, clk clock.Clock, allocator NumberAllocator,
	directory *DirectoryService, notificationService *NotificationService, collector *metrics.Collector) *CertificateService {
	return &CertificateService{
		db:                  db,
		cfg:                 cfg,
		clock:               clk,
		allocator:           allocator,
		directory:           directory,
		notificationService: notificationService,
		metrics:             collector,
	}
}

// Issue certifies an EVALUATED product. It is the retry path after a
// submission whose certificate step failed.
func (s *CertificateService) Issue(ctx context.Context, actor Actor, req *IssueCertificateRequest) (*models.Certificate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	award, _ := models.ParseAward(req.AwardLevel)
	if !award.Certifiable() {
		return nil, invalidField("award_level", "must be an award to issue a certificate")
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	var product *models.Product
	var certificate *models.Certificate
	var notice *models.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = loadProduct(tx, req.ProductID)
		if err != nil {
			return err
		}
		if product.Status != models.ProductStatusEvaluated {
			return fmt.Errorf("product is %s, only EVALUATED products can be certified: %w", product.Status, ErrConflict)
		}

		certificate, notice, err = s.issueInTx(tx, actor, product, award, published)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterIssue(ctx, product, certificate, notice)
	return certificate, nil
}

// issueInTx moves product from EVALUATED to CERTIFIED and creates its
// certificate. A product that already has one, from before a reset, keeps
// its number and gets the new award.
func (s *CertificateService) issueInTx(tx *gorm.DB, actor Actor, product *models.Product, award models.AwardLevel, published bool) (*models.Certificate, *models.Notification, error) {
	if err := transitionStatus(tx, product.ID, models.ProductStatusEvaluated, models.ProductStatusCertified); err != nil {
		return nil, nil, err
	}

	var certificate models.Certificate
	err := tx.Where("product_id = ?", product.ID).First(&certificate).Error
	switch {
	case err == nil:
		old := models.JSONB{"award_level": certificate.AwardLevel, "is_published": certificate.IsPublished}
		err = tx.Model(&certificate).Updates(map[string]interface{}{
			"award_level":  award,
			"is_published": published,
			"issued_by":    actor.ID,
		}).Error
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update certificate: %w", err)
		}
		certificate.AwardLevel = award
		certificate.IsPublished = published
		certificate.IssuedBy = actor.ID

		if err := recordAudit(tx, actor, "certificate.reissue", "certificate", certificate.ID, old,
			models.JSONB{"award_level": award, "is_published": published}); err != nil {
			return nil, nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := s.createWithNumber(tx, actor, product.ID, award, published)
		if err != nil {
			return nil, nil, err
		}
		certificate = *created

		if err := recordAudit(tx, actor, "certificate.issue", "certificate", certificate.ID, nil,
			models.JSONB{"certificate_number": certificate.CertificateNumber, "award_level": award, "product_id": product.ID}); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	product.Status = models.ProductStatusCertified

	notice := newNotification(product.ProducerID, models.NotificationCertificateIssued,
		"Certificate issued",
		fmt.Sprintf("Your product %q received the %s, certificate %s.", product.Name, award.Label(), certificate.CertificateNumber),
		"certificate", certificate.ID)
	if err := s.notificationService.Notify(tx, notice); err != nil {
		return nil, nil, err
	}

	return &certificate, notice, nil
}

func (s *CertificateService) createWithNumber(tx *gorm.DB, actor Actor, productID uuid.UUID, award models.AwardLevel, published bool) (*models.Certificate, error) {
	now := s.clock.Now()

	for attempt := 1; ; attempt++ {
		// The sequence advance stays outside the savepoint so a colliding
		// number is never handed out twice.
		number, err := s.allocator.Next(tx, now.Year())
		if err != nil {
			return nil, err
		}

		certificate := &models.Certificate{
			ProductID:         productID,
			CertificateNumber: number,
			AwardLevel:        award,
			IsPublished:       published,
			IssueDate:         now,
			IssuedBy:          actor.ID,
		}

		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(certificate).Error
		})
		if err == nil {
			return certificate, nil
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= s.cfg.Certification.AllocateRetries {
			return nil, fmt.Errorf("failed to create certificate: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"certificate_number": number,
			"attempt":            attempt,
		}).Warn("Certificate number collision, retrying")
	}
}

func (s *CertificateService) afterIssue(ctx context.Context, product *models.Product, certificate *models.Certificate, notice *models.Notification) {
	s.metrics.CertificateIssued(string(certificate.AwardLevel))
	s.notificationService.Deliver(loadAccountQuietly(s.db.WithContext(ctx), product.ProducerID), notice)

	logrus.WithFields(logrus.Fields{
		"product_id":         product.ID,
		"certificate_number": certificate.CertificateNumber,
		"award_level":        certificate.AwardLevel,
	}).Info("Certificate issued")
}

func (s *CertificateService) GetCertificate(ctx context.Context, actor Actor, id uuid.UUID) (*models.Certificate, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var certificate models.Certificate
	if err := s.db.WithContext(ctx).Preload("Product").First(&certificate, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("certificate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if certificate.Product == nil || !canAccess(actor, certificate.Product.ProducerID) {
		return nil, fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}

	return &certificate, nil
}

// Update changes the award or the publish flag. Unpublishing only hides the
// certificate from the directory, it still verifies.
func (s *CertificateService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateCertificateRequest) (*models.Certificate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	updates := map[string]interface{}{}
	if req.AwardLevel != nil {
		award, _ := models.ParseAward(*req.AwardLevel)
		if !award.Certifiable() {
			return nil, invalidField("award_level", "cannot be NONE, unpublish or delete the certificate instead")
		}
		updates["award_level"] = award
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if len(updates) == 0 {
		return nil, invalidField("request", "has nothing to update")
	}

	var certificate models.Certificate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&certificate, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("certificate %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("database error: %w", err)
		}

		old := models.JSONB{"award_level": certificate.AwardLevel, "is_published": certificate.IsPublished}
		if err := tx.Model(&certificate).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update certificate: %w", err)
		}
		if err := tx.First(&certificate, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to reload certificate: %w", err)
		}

		return recordAudit(tx, actor, "certificate.update", "certificate", id, old, models.JSONB(updates))
	})
	if err != nil {
		return nil, err
	}

	return &certificate, nil
}

// Delete physically removes a certificate. confirmation must repeat the
// certificate number. The product returns to EVALUATED.
func (s *CertificateService) Delete(ctx context.Context, actor Actor, id uuid.UUID, confirmation string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var certificate models.Certificate
		if err := tx.First(&certificate, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("certificate %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if strings.TrimSpace(confirmation) != certificate.CertificateNumber {
			return fmt.Errorf("type %s to delete this certificate: %w", certificate.CertificateNumber, ErrConfirmationRequired)
		}

		if err := tx.Where("product_id = ?", certificate.ProductID).Delete(&models.QRCode{}).Error; err != nil {
			return fmt.Errorf("failed to delete QR code: %w", err)
		}
		if err := tx.Delete(&certificate).Error; err != nil {
			return fmt.Errorf("failed to delete certificate: %w", err)
		}

		product, err := loadProduct(tx, certificate.ProductID)
		if err != nil {
			return err
		}
		if product.Status == models.ProductStatusCertified {
			if err := transitionStatus(tx, product.ID, models.ProductStatusCertified, models.ProductStatusEvaluated); err != nil {
				return err
			}
		}

		return recordAudit(tx, actor, "certificate.delete", "certificate", id,
			models.JSONB{"certificate_number": certificate.CertificateNumber, "award_level": certificate.AwardLevel}, nil)
	})
}

// Verify looks a certificate up by number for the public verification page.
// Unpublished certificates verify too.
func (s *CertificateService) Verify(ctx context.Context, number string) (*VerificationResult, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, invalidField("certificate_number", "is required")
	}

	view, err := s.directory.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &VerificationResult{Valid: false, CertificateNumber: number}, nil
		}
		return nil, err
	}

	return &VerificationResult{Valid: true, CertificateNumber: number, Certificate: view}, nil
}
