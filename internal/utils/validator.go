// internal/utils/validator.go
package utils

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/tastecert-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("award_level", validateAwardLevel)
	validate.RegisterValidation("product_status", validateProductStatus)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// award_level accepts display strings and canonical tokens.
func validateAwardLevel(fl validator.FieldLevel) bool {
	_, err := models.ParseAward(fl.Field().String())
	return err == nil
}

func validateProductStatus(fl validator.FieldLevel) bool {
	return models.ProductStatus(fl.Field().String()).Valid()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "url":
		return e.Field() + " must be a valid URL"
	case "strong_password":
		return "Password must contain at least 8 characters with uppercase, lowercase and a number"
	case "award_level":
		return e.Field() + " must be one of GRAND_GOLD, GOLD, SILVER, BRONZE, NONE"
	case "product_status":
		return e.Field() + " is not a known product status"
	default:
		return e.Field() + " is invalid"
	}
}
