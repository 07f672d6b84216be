// internal/handlers/qr.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type QRHandler struct {
	qrService *services.QRService
}

func NewQRHandler(qrService *services.QRService) *QRHandler {
	return &QRHandler{
		qrService: qrService,
	}
}

// GET /products/:id/qr
func (h *QRHandler) GetProductQR(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	qr, err := h.qrService.GetOrCreate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"qr_code": qr,
	})
}

// GET /qr/:code
func (h *QRHandler) Scan(c *gin.Context) {
	target, err := h.qrService.Scan(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, target)
}
