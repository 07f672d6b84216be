// internal/services/document_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/models"
)

const maxPDFSize = 20 * 1024 * 1024

// DocumentService renders certificate PDFs through an external renderer and
// keeps the result in storage.
type DocumentService struct {
	db         *gorm.DB
	cfg        *config.Config
	storage    *StorageService
	directory  *DirectoryService
	httpClient *http.Client
}

type renderRequest struct {
	Template        string      `json:"template"`
	Certificate     *WinnerView `json:"certificate"`
	VerificationURL string      `json:"verification_url"`
}

func NewDocumentService(db *gorm.DB, cfg *config.Config, storage *StorageService, directory *DirectoryService) *DocumentService {
	return &DocumentService{
		db:        db,
		cfg:       cfg,
		storage:   storage,
		directory: directory,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Collaborators.PDFRendererTimeout) * time.Second,
		},
	}
}

// GenerateCertificatePDF renders the certificate, stores the PDF and records
// its URL on the certificate.
func (s *DocumentService) GenerateCertificatePDF(ctx context.Context, actor Actor, certificateID uuid.UUID) (*models.Certificate, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.cfg.Collaborators.PDFRendererURL == "" {
		return nil, fmt.Errorf("no PDF renderer configured: %w", ErrCollaboratorUnavailable)
	}

	view, err := s.directory.FindByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	pdf, err := s.render(ctx, view)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("certificates/%s.pdf", view.CertificateNumber)
	upload, err := s.storage.Put(ctx, key, "application/pdf", pdf, true)
	if err != nil {
		return nil, err
	}

	var certificate models.Certificate
	var old string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&certificate, "id = ?", certificateID).Error; err != nil {
			return fmt.Errorf("failed to load certificate: %w", err)
		}

		old = certificate.PDFURL
		if err := tx.Model(&certificate).Update("pdf_url", upload.URL).Error; err != nil {
			return fmt.Errorf("failed to save PDF URL: %w", err)
		}
		certificate.PDFURL = upload.URL

		return recordAudit(tx, actor, "certificate.pdf", "certificate", certificateID,
			models.JSONB{"pdf_url": old}, models.JSONB{"pdf_url": upload.URL})
	})
	if err != nil {
		return nil, err
	}

	// The replaced object goes only once the new URL is committed.
	if old != "" && old != upload.URL {
		if oldKey, ok := s.storage.KeyFromURL(old); ok {
			if err := s.storage.DeleteFile(ctx, oldKey); err != nil {
				logStorageError(err, oldKey)
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"certificate_number": view.CertificateNumber,
		"size":               upload.Size,
	}).Info("Certificate PDF generated")

	return &certificate, nil
}

func (s *DocumentService) render(ctx context.Context, view *WinnerView) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{
		Template:        "certificate",
		Certificate:     view,
		VerificationURL: verificationURL(s.cfg, view.CertificateNumber),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Collaborators.PDFRendererURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PDF renderer request failed: %v: %w", err, ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF renderer returned %s: %w", resp.Status, ErrCollaboratorUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered PDF: %v: %w", err, ErrCollaboratorUnavailable)
	}
	if len(body) > maxPDFSize {
		return nil, fmt.Errorf("rendered PDF exceeds %d bytes: %w", maxPDFSize, ErrCollaboratorUnavailable)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, fmt.Errorf("PDF renderer returned %s instead of a PDF: %w", resp.Header.Get("Content-Type"), ErrCollaboratorUnavailable)
	}

	return body, nil
}

func verificationURL(cfg *config.Config, number string) string {
	return strings.TrimRight(cfg.Frontend.BaseURL, "/") + "/verify/" + number
}
