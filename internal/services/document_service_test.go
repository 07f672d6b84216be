package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
)

func (suite *ServiceTestSuite) documentService() *DocumentService {
	storage, err := NewStorageService(suite.cfg)
	require.NoError(suite.T(), err)
	return NewDocumentService(suite.db, suite.cfg, storage, suite.directory)
}

func (suite *ServiceTestSuite) certifiedForPDF() *models.Certificate {
	producer, _ := suite.createProducer("Printer")
	product := suite.createProduct(producer, "Sparkling Rose", models.ProductStatusPending)
	return suite.certify(product, models.AwardGold, true)
}

func (suite *ServiceTestSuite) TestGeneratePDFStoresRenderedDocument() {
	cert := suite.certifiedForPDF()

	var received renderRequest
	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(suite.T(), json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 certificate"))
	}))
	defer renderer.Close()
	suite.cfg.Collaborators.PDFRendererURL = renderer.URL

	updated, err := suite.documentService().GenerateCertificatePDF(suite.ctx, suite.admin, cert.ID)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "http://files.test/uploads/certificates/"+cert.CertificateNumber+".pdf", updated.PDFURL)
	assert.Equal(suite.T(), "certificate", received.Template)
	assert.Equal(suite.T(), cert.CertificateNumber, received.Certificate.CertificateNumber)
	assert.Equal(suite.T(), "https://tastecert.test/verify/"+cert.CertificateNumber, received.VerificationURL)

	data, err := os.ReadFile(filepath.Join(suite.cfg.Storage.LocalPath, "certificates", cert.CertificateNumber+".pdf"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "%PDF-1.4 certificate", string(data))

	assert.Equal(suite.T(), int64(1), suite.count(&models.AuditLog{}, "action = ?", "certificate.pdf"))
}

func (suite *ServiceTestSuite) TestGeneratePDFRendererFailures() {
	cert := suite.certifiedForPDF()

	_, err := suite.documentService().GenerateCertificatePDF(suite.ctx, suite.admin, cert.ID)
	assert.ErrorIs(suite.T(), err, ErrCollaboratorUnavailable)

	responses := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not a pdf": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		},
	}
	for name, handler := range responses {
		renderer := httptest.NewServer(handler)
		suite.cfg.Collaborators.PDFRendererURL = renderer.URL

		_, err := suite.documentService().GenerateCertificatePDF(suite.ctx, suite.admin, cert.ID)
		assert.ErrorIs(suite.T(), err, ErrCollaboratorUnavailable, name)
		renderer.Close()
	}

	var stored models.Certificate
	require.NoError(suite.T(), suite.db.First(&stored, "id = ?", cert.ID).Error)
	assert.Empty(suite.T(), stored.PDFURL)
}

func (suite *ServiceTestSuite) TestGeneratePDFRequiresAdmin() {
	cert := suite.certifiedForPDF()
	_, actor := suite.createProducer("Not Admin")

	_, err := suite.documentService().GenerateCertificatePDF(suite.ctx, actor, cert.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}

// stalePDF points the certificate at an earlier stored PDF and returns its path.
func (suite *ServiceTestSuite) stalePDF(cert *models.Certificate) string {
	dir := filepath.Join(suite.cfg.Storage.LocalPath, "certificates")
	require.NoError(suite.T(), os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "previous.pdf")
	require.NoError(suite.T(), os.WriteFile(path, []byte("%PDF-1.4 old"), 0o644))
	require.NoError(suite.T(), suite.db.Model(cert).Update("pdf_url", "http://files.test/uploads/certificates/previous.pdf").Error)
	return path
}

func (suite *ServiceTestSuite) pdfRenderer() {
	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fresh"))
	}))
	suite.T().Cleanup(renderer.Close)
	suite.cfg.Collaborators.PDFRendererURL = renderer.URL
}

func (suite *ServiceTestSuite) TestGeneratePDFReplacesPreviousFile() {
	cert := suite.certifiedForPDF()
	previous := suite.stalePDF(cert)
	suite.pdfRenderer()

	_, err := suite.documentService().GenerateCertificatePDF(suite.ctx, suite.admin, cert.ID)
	require.NoError(suite.T(), err)

	_, err = os.Stat(previous)
	assert.True(suite.T(), os.IsNotExist(err))
}

func (suite *ServiceTestSuite) TestGeneratePDFKeepsPreviousFileOnRollback() {
	cert := suite.certifiedForPDF()
	previous := suite.stalePDF(cert)
	suite.pdfRenderer()

	err := suite.db.Callback().Create().Before("gorm:create").Register("test:fail_audit", func(db *gorm.DB) {
		if db.Statement.Table == "audit_logs" {
			_ = db.AddError(errors.New("audit unavailable"))
		}
	})
	require.NoError(suite.T(), err)

	_, err = suite.documentService().GenerateCertificatePDF(suite.ctx, suite.admin, cert.ID)
	require.Error(suite.T(), err)

	var stored models.Certificate
	require.NoError(suite.T(), suite.db.First(&stored, "id = ?", cert.ID).Error)
	assert.Equal(suite.T(), "http://files.test/uploads/certificates/previous.pdf", stored.PDFURL)

	data, err := os.ReadFile(previous)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "%PDF-1.4 old", string(data))
}
