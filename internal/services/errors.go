// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/tastecert-backend/internal/models"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrConflict                = errors.New("conflict")
	ErrConfirmationRequired    = errors.New("confirmation does not match")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// PartialFailureError reports a submission whose evaluation was committed
// while the certificate step was not.
type PartialFailureError struct {
	ProductID    uuid.UUID
	EvaluationID uuid.UUID
	Status       models.ProductStatus
	Err          error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("evaluation %s saved, product %s left %s, certificate not issued: %v",
		e.EvaluationID, e.ProductID, e.Status, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func invalidField(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
