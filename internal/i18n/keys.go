// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Accounts
	KeyAccountNotFound = "account.not_found"
	KeyAccountApproved = "account.approved"
	KeyAccountRejected = "account.rejected"
	KeyAccountClosed   = "account.closed"

	// Categories
	KeyCategoryCreated  = "category.created"
	KeyCategoryUpdated  = "category.updated"
	KeyCategoryDeleted  = "category.deleted"
	KeyCategoryNotFound = "category.not_found"

	// Products
	KeyProductSubmitted     = "product.submitted"
	KeyProductDeleted       = "product.deleted"
	KeyProductNotFound      = "product.not_found"
	KeyProductStatusUpdated = "product.status_updated"

	// Evaluations
	KeyEvaluationSaved    = "evaluation.saved"
	KeyEvaluationNotFound = "evaluation.not_found"
	KeyEvaluationPartial  = "evaluation.partial_failure"

	// Certificates
	KeyCertificateIssued       = "certificate.issued"
	KeyCertificateUpdated      = "certificate.updated"
	KeyCertificateDeleted      = "certificate.deleted"
	KeyCertificateNotFound     = "certificate.not_found"
	KeyCertificateInvalid      = "certificate.invalid_number"
	KeyCertificateValid        = "certificate.valid"
	KeyCertificatePDFGenerated = "certificate.pdf_generated"

	// QR codes
	KeyQRCodeNotFound = "qr.not_found"

	// Generic
	KeyValidationInvalid    = "validation.invalid"
	KeyConfirmationRequired = "validation.confirmation_required"
	KeyConflictRetry        = "error.conflict_retry"
	KeyInternalError        = "error.internal"
	KeyCollaboratorDown     = "error.collaborator_unavailable"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
)
