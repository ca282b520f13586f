// Package errors provides standardized error handling for the portal services.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Draft/document validation errors. These are hard failures: they are
// raised before any side effect and always surface to the caller.
const (
	ErrCodeAuthRequired         ErrorCode = "AUTH_REQUIRED"
	ErrCodeEmailNotVerified     ErrorCode = "EMAIL_NOT_VERIFIED"
	ErrCodeDraftNotFound        ErrorCode = "DRAFT_NOT_FOUND"
	ErrCodeEmptyFile            ErrorCode = "EMPTY_FILE"
	ErrCodeFileTooLarge         ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidFileType      ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeDocumentLimitReached ErrorCode = "DOCUMENT_LIMIT_REACHED"
	ErrCodeInvalidDocumentType  ErrorCode = "INVALID_DOCUMENT_TYPE"
)

// Submission / query errors.
const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, or "UNKNOWN_ERROR".
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return "UNKNOWN_ERROR"
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StandardError
	return errors.As(err, &se) && se.Code == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAuthRequiredError is raised when an anonymous caller attempts an
// operation that needs an authenticated identity.
func NewAuthRequiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthRequired,
		Message:   "You must be signed in to perform this action",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailNotVerifiedError is raised when the caller's email is unverified.
func NewEmailNotVerifiedError(email string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailNotVerified,
		Message:   "Please verify your email address before uploading documents",
		Details:   fmt.Sprintf("email: %s", email),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftNotFoundError is raised when the referenced draft has no remote record.
func NewDraftNotFoundError(draftID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftNotFound,
		Message:   "Application draft not found",
		Details:   fmt.Sprintf("draftId: %s", draftID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyFileError is raised for missing or zero-length uploads.
func NewEmptyFileError(fileName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyFile,
		Message:   "File is missing or empty",
		Details:   fmt.Sprintf("fileName: %s", fileName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError is raised before any network call when a file
// exceeds the upload limit. The message names the 10MB cap verbatim
// because the UI surfaces it inline.
func NewFileTooLargeError(fileName string, size int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   "File exceeds the maximum size of 10MB",
		Details:   fmt.Sprintf("fileName: %s, size: %d bytes", fileName, size),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFileTypeError is raised when the content type is outside the
// allow-list for the document slot.
func NewInvalidFileTypeError(contentType string, allowed []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFileType,
		Message:   "File type is not allowed for this document",
		Details:   fmt.Sprintf("contentType: %s, allowed: %v", contentType, allowed),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentLimitReachedError is raised on the upload that would exceed
// the academic-documents cap.
func NewDocumentLimitReachedError(limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentLimitReached,
		Message:   fmt.Sprintf("A maximum of %d academic documents is allowed", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDocumentTypeError is raised for an unknown document slot name.
func NewInvalidDocumentTypeError(docType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDocumentType,
		Message:   "Unknown document type",
		Details:   fmt.Sprintf("type: %s", docType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError wraps form-validation failures.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submitted form data failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError wraps a failed application+lead batch commit.
// The underlying error propagates unchanged in Details; there is no retry.
func NewSubmissionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Application submission failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
