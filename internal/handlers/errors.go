// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

// respondError maps a service error onto the JSON error envelope. Errors that
// match no sentinel are logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var partial *services.PartialFailureError
	switch {
	case errors.As(err, &partial):
		logrus.WithError(err).WithField("product_id", partial.ProductID).Error("Partial certification failure")
		utils.ErrorResponse(c, http.StatusInternalServerError, "PARTIAL_FAILURE", i18n.T(lang, i18n.KeyEvaluationPartial), gin.H{
			"committed":      "evaluation",
			"failed":         "certificate",
			"product_id":     partial.ProductID,
			"evaluation_id":  partial.EvaluationID,
			"product_status": partial.Status,
		})
	case errors.Is(err, services.ErrValidation):
		if fieldErrors := utils.GetValidationErrors(err); len(fieldErrors) > 0 {
			utils.ValidationErrorResponse(c, fieldErrors)
			return
		}
		utils.BadRequestResponse(c, summary(err, services.ErrValidation), nil)
	case errors.Is(err, services.ErrConfirmationRequired):
		utils.ErrorResponse(c, http.StatusBadRequest, "CONFIRMATION_REQUIRED",
			i18n.T(lang, i18n.KeyConfirmationRequired), gin.H{"hint": summary(err, services.ErrConfirmationRequired)})
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, "")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, summary(err, services.ErrForbidden))
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", summary(err, services.ErrNotFound), nil)
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, summary(err, services.ErrConflict))
	case errors.Is(err, services.ErrCollaboratorUnavailable):
		logrus.WithError(err).Warn("Collaborator unavailable")
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyCollaboratorDown))
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// summary strips the sentinel text from a wrapped error so the remaining
// message reads as a sentence.
func summary(err, sentinel error) string {
	msg := err.Error()
	msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

type confirmationRequest struct {
	Confirmation string `json:"confirmation"`
}

// confirmation reads the confirmation text from a JSON body or, for clients
// that cannot send a DELETE body, the query string.
func confirmation(c *gin.Context) string {
	var req confirmationRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.Confirmation == "" {
		req.Confirmation = c.Query("confirmation")
	}
	return req.Confirmation
}
