// internal/handlers/evaluation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type EvaluationHandler struct {
	evaluationService *services.EvaluationService
}

func NewEvaluationHandler(evaluationService *services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{
		evaluationService: evaluationService,
	}
}

// POST /evaluations
func (h *EvaluationHandler) SubmitEvaluation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SubmitEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.evaluationService.Submit(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyEvaluationSaved)
	if result.Certificate != nil {
		message = i18n.T(lang, i18n.KeyCertificateIssued)
	}

	utils.SuccessResponse(c, gin.H{
		"message":         message,
		"evaluation":      result.Evaluation,
		"certificate":     result.Certificate,
		"status":          result.Status,
		"suggested_award": result.SuggestedAward,
		"warnings":        result.Warnings,
	})
}

// GET /products/:id/evaluation
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	evaluation, err := h.evaluationService.GetEvaluation(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"evaluation": evaluation,
	})
}

type evaluationFormRequest struct {
	Draft *services.EvaluationDraft `json:"draft"`
}

// POST /admin/products/:id/evaluation-form
func (h *EvaluationHandler) GetEvaluationForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req evaluationFormRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	form, err := h.evaluationService.EvaluationForm(c.Request.Context(), middleware.GetActor(c), id, req.Draft)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"form": form,
	})
}
