// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	stderrors "student-portal/internal/common/errors"
	"student-portal/internal/common/validation"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/search"
	"student-portal/internal/services/draftsync"
	"student-portal/internal/services/progress"
)

// GET /api/drafts?email=
func (s *Server) handleEnsureDraft(c *fiber.Ctx) error {
	caller := callerFrom(c)

	draft, outcome := s.drafts.EnsureDraft(c.UserContext(), caller, c.Query("email"))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"draft":    draft,
		"degraded": outcome.Degraded(),
		"warnings": outcome.Warnings,
	})
}

type saveDraftPayload struct {
	FormData      map[string]interface{} `json:"formData"`
	ActiveSection string                 `json:"activeSection"`
	SavedAt       time.Time              `json:"savedAt"`
}

// PUT /api/drafts/:id
func (s *Server) handleSaveDraft(c *fiber.Ctx) error {
	caller := callerFrom(c)

	var payload saveDraftPayload
	if err := c.BodyParser(&payload); err != nil {
		return stderrors.NewValidationFailedError("request body must be a JSON draft patch")
	}

	outcome := s.drafts.SaveDraft(c.UserContext(), caller, c.Params("id"), draftsync.SavePatch{
		FormData:      payload.FormData,
		ActiveSection: payload.ActiveSection,
		SavedAt:       payload.SavedAt,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"saved":    true,
		"degraded": outcome.Degraded(),
		"warnings": outcome.Warnings,
	})
}

// POST /api/drafts/:id/submit
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	caller := callerFrom(c)

	body := c.Body()
	if err := validation.ValidateSubmission(body); err != nil {
		return err
	}

	var form models.SubmissionForm
	if err := json.Unmarshal(body, &form); err != nil {
		return stderrors.NewValidationFailedError("request body must be a JSON submission form")
	}

	result, err := s.drafts.PromoteDraft(c.UserContext(), caller, c.Params("id"), &form)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// POST /api/drafts/:id/documents
// multipart form: type=<documentType>, file=<upload>
func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	caller := callerFrom(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return stderrors.NewValidationFailedError("multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return stderrors.NewValidationFailedError("uploaded file could not be read")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return stderrors.NewValidationFailedError("uploaded file could not be read")
	}

	contentType := fileHeader.Header.Get("Content-Type")

	meta, err := s.drafts.UploadDocument(c.UserContext(), caller, draftsync.UploadRequest{
		DraftID:     c.Params("id"),
		Type:        models.DocumentType(c.FormValue("type")),
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(meta)
}

// DELETE /api/drafts/:id/documents?type=&url=
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	caller := callerFrom(c)

	err := s.drafts.DeleteDocument(c.UserContext(), caller,
		c.Params("id"),
		models.DocumentType(c.Query("type")),
		c.Query("url"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type verificationPayload struct {
	Phone string `json:"phone"`
}

// POST /api/verification/phone
// Dispatches a one-time code to the caller's WhatsApp number. The send
// runs in the background; delivery failures are logged by the notifier.
func (s *Server) handleSendVerification(c *fiber.Ctx) error {
	caller := callerFrom(c)
	if !caller.Authenticated() {
		return stderrors.NewAuthRequiredError()
	}

	var payload verificationPayload
	if err := c.BodyParser(&payload); err != nil || strings.TrimSpace(payload.Phone) == "" {
		return stderrors.NewValidationFailedError("field 'phone' is required")
	}

	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	go s.notify.SendVerificationCode(context.Background(), payload.Phone, code)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "queued",
	})
}

// GET /api/search?q=&status=&from=&size=
// Back-office staff search over submitted applications.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	caller := callerFrom(c)
	if err := identity.RequireVerified(caller); err != nil {
		return err
	}

	hits, total, err := s.search.Search(c.UserContext(), search.SearchRequest{
		Keywords: c.Query("q"),
		Status:   c.Query("status"),
		From:     c.QueryInt("from", 0),
		Size:     c.QueryInt("size", 20),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"hits":  hits,
		"total": total,
	})
}

type historyItem struct {
	Application models.Application `json:"application"`
	Progress    progress.Progress  `json:"progress"`
}

// GET /api/applications
func (s *Server) handleHistory(c *fiber.Ctx) error {
	caller := callerFrom(c)

	apps, err := s.apps.History(c.UserContext(), caller)
	if err != nil {
		return err
	}

	items := make([]historyItem, 0, len(apps))
	for i := range apps {
		items = append(items, historyItem{
			Application: apps[i],
			Progress:    progress.Calculate(&apps[i]),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"applications": items,
	})
}
