// internal/services/qr_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/metrics"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

const qrCodeAttempts = 3

// QRService owns the scannable code printed on certified products.
type QRService struct {
	db      *gorm.DB
	cfg     *config.Config
	clock   clock.Clock
	metrics *metrics.Collector
}

type QRCodeView struct {
	ProductID  uuid.UUID  `json:"product_id"`
	Code       string     `json:"code"`
	ScanURL    string     `json:"scan_url"`
	TargetURL  string     `json:"target_url"`
	ImageURL   string     `json:"image_url"`
	ScanCount  int64      `json:"scan_count"`
	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
}

func NewQRService(db *gorm.DB, cfg *config.Config, clk clock.Clock, collector *metrics.Collector) *QRService {
	return &QRService{
		db:      db,
		cfg:     cfg,
		clock:   clk,
		metrics: collector,
	}
}

// GetOrCreate returns the product's QR code, creating it on first request.
// Only certified products have one.
func (s *QRService) GetOrCreate(ctx context.Context, actor Actor, productID uuid.UUID) (*QRCodeView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var qr models.QRCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if !canAccess(actor, product.ProducerID) {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}

		var certificate models.Certificate
		if err := tx.Where("product_id = ?", productID).First(&certificate).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product has no certificate: %w", ErrConflict)
			}
			return fmt.Errorf("failed to load certificate: %w", err)
		}
		target := verificationURL(s.cfg, certificate.CertificateNumber)

		err = tx.Where("product_id = ?", productID).First(&qr).Error
		switch {
		case err == nil:
			if qr.TargetURL != target {
				qr.TargetURL = target
				return tx.Model(&qr).Update("target_url", target).Error
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return s.create(tx, actor, productID, target, &qr)
		default:
			return fmt.Errorf("failed to load QR code: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return s.view(&qr), nil
}

func (s *QRService) create(tx *gorm.DB, actor Actor, productID uuid.UUID, target string, qr *models.QRCode) error {
	for attempt := 1; ; attempt++ {
		code, err := utils.GenerateQRCode()
		if err != nil {
			return fmt.Errorf("failed to generate QR code: %w", err)
		}

		*qr = models.QRCode{
			ProductID:   productID,
			Code:        code,
			TargetURL:   target,
			GeneratedBy: actor.ID,
		}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(qr).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= qrCodeAttempts {
			return fmt.Errorf("failed to create QR code: %w", err)
		}
	}
}

// Scan records one scan of code and returns where to send the scanner.
func (s *QRService) Scan(ctx context.Context, code string) (string, error) {
	now := s.clock.Now()
	result := s.db.WithContext(ctx).Model(&models.QRCode{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"scan_count":   gorm.Expr("scan_count + ?", 1),
			"last_scan_at": now,
		})
	if result.Error != nil {
		return "", fmt.Errorf("failed to record scan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", fmt.Errorf("QR code %s: %w", code, ErrNotFound)
	}

	var qr models.QRCode
	if err := s.db.WithContext(ctx).Select("target_url").Where("code = ?", code).First(&qr).Error; err != nil {
		return "", fmt.Errorf("failed to load QR code: %w", err)
	}

	s.metrics.QRScanned()
	return qr.TargetURL, nil
}

func (s *QRService) view(qr *models.QRCode) *QRCodeView {
	scanURL := strings.TrimRight(s.cfg.Server.PublicURL, "/") + "/v1/qr/" + qr.Code
	return &QRCodeView{
		ProductID:  qr.ProductID,
		Code:       qr.Code,
		ScanURL:    scanURL,
		TargetURL:  qr.TargetURL,
		ImageURL:   s.cfg.Collaborators.QRImageBaseURL + url.QueryEscape(scanURL),
		ScanCount:  qr.ScanCount,
		LastScanAt: qr.LastScanAt,
	}
}
