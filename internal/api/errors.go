// internal/api/errors.go
package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	stderrors "student-portal/internal/common/errors"
)

// httpStatus maps internal error codes onto HTTP statuses.
func httpStatus(code stderrors.ErrorCode) int {
	switch code {
	case stderrors.ErrCodeAuthRequired:
		return fiber.StatusUnauthorized
	case stderrors.ErrCodeEmailNotVerified, stderrors.ErrCodePermissionDenied:
		return fiber.StatusForbidden
	case stderrors.ErrCodeDraftNotFound:
		return fiber.StatusNotFound
	case stderrors.ErrCodeFileTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case stderrors.ErrCodeEmptyFile,
		stderrors.ErrCodeInvalidFileType,
		stderrors.ErrCodeInvalidDocumentType,
		stderrors.ErrCodeDocumentLimitReached,
		stderrors.ErrCodeValidationFailed:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler is the fiber-level error handler: structured errors keep
// their code and message, everything else becomes an opaque 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var se *stderrors.StandardError
	if errors.As(err, &se) {
		return c.Status(httpStatus(se.Code)).JSON(fiber.Map{
			"code":      se.Code,
			"message":   se.Message,
			"retryable": se.Retryable,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
		})
	}

	s.logger.Error("unhandled request error", map[string]interface{}{
		"requestId": c.Locals("requestId"),
		"path":      c.Path(),
		"error":     err.Error(),
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
