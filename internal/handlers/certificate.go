// internal/handlers/certificate.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type CertificateHandler struct {
	certificateService *services.CertificateService
	documentService    *services.DocumentService
}

func NewCertificateHandler(certificateService *services.CertificateService, documentService *services.DocumentService) *CertificateHandler {
	return &CertificateHandler{
		certificateService: certificateService,
		documentService:    documentService,
	}
}

// POST /certificates
func (h *CertificateHandler) IssueCertificate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.IssueCertificateRequest
	if !bindJSON(c, &req) {
		return
	}

	certificate, err := h.certificateService.Issue(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyCertificateIssued),
		"certificate": certificate,
	})
}

// GET /certificates/:id
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	certificate, err := h.certificateService.GetCertificate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"certificate": certificate,
	})
}

// PATCH /certificates/:id
func (h *CertificateHandler) UpdateCertificate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCertificateRequest
	if !bindJSON(c, &req) {
		return
	}

	certificate, err := h.certificateService.Update(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyCertificateUpdated),
		"certificate": certificate,
	})
}

// DELETE /certificates/:id
func (h *CertificateHandler) DeleteCertificate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.certificateService.Delete(c.Request.Context(), middleware.GetActor(c), id, confirmation(c)); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCertificateDeleted),
	})
}

// POST /certificates/:id/pdf
func (h *CertificateHandler) GeneratePDF(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	certificate, err := h.documentService.GenerateCertificatePDF(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyCertificatePDFGenerated),
		"certificate": certificate,
		"pdf_url":     certificate.PDFURL,
	})
}

// GET /verify/:number
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.certificateService.Verify(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Valid {
		c.JSON(http.StatusNotFound, utils.APIResponse{
			Success: false,
			Error:   i18n.T(lang, i18n.KeyCertificateInvalid),
			Code:    "NOT_FOUND",
			Data: gin.H{
				"valid":              false,
				"certificate_number": result.CertificateNumber,
			},
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":            i18n.T(lang, i18n.KeyCertificateValid),
		"valid":              true,
		"certificate_number": result.CertificateNumber,
		"certificate":        result.Certificate,
	})
}
