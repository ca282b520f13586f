// internal/services/draftsync/upload.go
package draftsync

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	stderrors "student-portal/internal/common/errors"
	"student-portal/internal/common/metrics"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/documents"
)

// UploadRequest describes one document upload against a draft.
type UploadRequest struct {
	DraftID     string
	Type        models.DocumentType
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult pairs one entry of a multi-upload with its outcome.
type UploadResult struct {
	Request  UploadRequest
	Metadata *models.DocumentMetadata
	Err      error
}

var emailSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// blobPath returns the deterministic storage path for a stored file name.
func blobPath(draftID, fileName string) string {
	return fmt.Sprintf("applications/%s/documents/%s", draftID, fileName)
}

// UploadDocument validates, stores, and records one document on a draft.
//
// Every precondition is checked before any network call: a file that is
// too large or of the wrong type is rejected without touching either
// store. For single-slot types the previous blob is deleted before the
// new upload; that deletion is best-effort and never blocks the upload.
// Document metadata lives only in the remote store. Files cannot be
// mirrored into the local cache, so the cache copy is never touched here.
func (s *Service) UploadDocument(ctx context.Context, caller *identity.Caller, req UploadRequest) (*models.DocumentMetadata, error) {
	meta, err := s.uploadDocument(ctx, caller, req)
	result := "ok"
	if err != nil {
		result = string(stderrors.CodeOf(err))
	}
	metrics.DocumentUploadsTotal.WithLabelValues(string(req.Type), result).Inc()
	return meta, err
}

func (s *Service) uploadDocument(ctx context.Context, caller *identity.Caller, req UploadRequest) (*models.DocumentMetadata, error) {
	if err := identity.RequireVerified(caller); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, stderrors.NewInvalidDocumentTypeError(string(req.Type))
	}
	if len(req.Data) == 0 {
		return nil, stderrors.NewEmptyFileError(req.FileName)
	}
	if int64(len(req.Data)) > models.MaxDocumentSize {
		return nil, stderrors.NewFileTooLargeError(req.FileName, int64(len(req.Data)))
	}
	if !models.ContentTypeAllowed(req.Type, req.ContentType) {
		return nil, stderrors.NewInvalidFileTypeError(req.ContentType, models.AllowedContentTypes(req.Type))
	}

	doc, err := s.store.Get(ctx, DraftCollection, req.DraftID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, stderrors.NewDraftNotFoundError(req.DraftID)
	}
	if err != nil {
		return nil, err
	}

	var draft models.Draft
	if err := documents.Decode(doc, &draft); err != nil {
		return nil, err
	}

	if req.Type == models.DocumentAcademic &&
		len(draft.Documents.AcademicDocuments) >= models.MaxAcademicDocuments {
		return nil, stderrors.NewDocumentLimitReachedError(models.MaxAcademicDocuments)
	}

	// Replace semantics: the old blob goes first so the slot never holds
	// two referenced objects. Its failure does not block the new upload.
	if req.Type.SingleSlot() {
		if old := singleSlot(&draft.Documents, req.Type); old != nil {
			if err := s.blobs.Delete(ctx, blobPath(req.DraftID, old.FileName)); err != nil {
				s.logger.Warn("previous blob delete failed before replacement", map[string]interface{}{
					"draftId":  req.DraftID,
					"type":     string(req.Type),
					"fileName": old.FileName,
					"error":    err.Error(),
				})
			}
		}
	}

	now := time.Now().UTC()
	storedName := fmt.Sprintf("draft_%s_%s_%s_%d.%s",
		req.Type, req.DraftID,
		emailSanitizer.ReplaceAllString(caller.NormalizedEmail(), ""),
		now.UnixMilli(),
		models.FileExtension(req.ContentType))

	url, err := s.blobs.Upload(ctx, blobPath(req.DraftID, storedName), req.ContentType, req.Data)
	if err != nil {
		return nil, err
	}

	meta := &models.DocumentMetadata{
		URL:         url,
		FileName:    storedName,
		Size:        int64(len(req.Data)),
		ContentType: req.ContentType,
		UploadedAt:  now,
		Type:        req.Type,
	}

	// The write targets only this document's slot. Academic entries are
	// appended inside the store, so concurrent uploads cannot overwrite
	// each other's entries with a stale copy of the list.
	if req.Type == models.DocumentAcademic {
		err = s.store.AppendToArray(ctx, DraftCollection, req.DraftID, documentFieldPath(req.Type), meta)
	} else {
		err = s.store.SetPath(ctx, DraftCollection, req.DraftID, documentFieldPath(req.Type), meta)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Patch(ctx, DraftCollection, req.DraftID, documents.Document{
		"updatedAt": now,
	}); err != nil {
		s.logger.Warn("draft timestamp update failed after document write", map[string]interface{}{
			"draftId": req.DraftID,
			"error":   err.Error(),
		})
	}

	metrics.DocumentUploadBytes.Observe(float64(len(req.Data)))
	return meta, nil
}

// DeleteDocument removes one document from a draft. For the academic
// list only the entry whose URL matches is removed; an unknown URL is a
// tolerated no-op. Single-slot fields are written back as explicit null.
func (s *Service) DeleteDocument(ctx context.Context, caller *identity.Caller, draftID string, docType models.DocumentType, downloadURL string) error {
	if err := identity.RequireVerified(caller); err != nil {
		return err
	}
	if !docType.Valid() {
		return stderrors.NewInvalidDocumentTypeError(string(docType))
	}

	doc, err := s.store.Get(ctx, DraftCollection, draftID)
	if errors.Is(err, documents.ErrNotFound) {
		return stderrors.NewDraftNotFoundError(draftID)
	}
	if err != nil {
		return err
	}

	var draft models.Draft
	if err := documents.Decode(doc, &draft); err != nil {
		return err
	}

	var slotValue interface{}
	if docType == models.DocumentAcademic {
		var removed *models.DocumentMetadata
		kept := make([]models.DocumentMetadata, 0, len(draft.Documents.AcademicDocuments))
		for _, entry := range draft.Documents.AcademicDocuments {
			if removed == nil && entry.URL == downloadURL {
				e := entry
				removed = &e
				continue
			}
			kept = append(kept, entry)
		}
		if removed == nil {
			return nil
		}

		if err := s.blobs.Delete(ctx, blobPath(draftID, removed.FileName)); err != nil {
			s.logger.Warn("academic document blob delete failed", map[string]interface{}{
				"draftId":  draftID,
				"fileName": removed.FileName,
				"error":    err.Error(),
			})
		}

		slotValue = kept
	} else {
		existing := singleSlot(&draft.Documents, docType)
		if existing != nil {
			if err := s.blobs.Delete(ctx, blobPath(draftID, existing.FileName)); err != nil {
				s.logger.Warn("document blob delete failed", map[string]interface{}{
					"draftId":  draftID,
					"type":     string(docType),
					"fileName": existing.FileName,
					"error":    err.Error(),
				})
			}
		}

		// slotValue stays nil: the slot is written back as explicit null.
	}

	// Only this document's slot is touched; sibling entries written by
	// concurrent uploads survive the delete.
	if err := s.store.SetPath(ctx, DraftCollection, draftID, documentFieldPath(docType), slotValue); err != nil {
		return err
	}
	if err := s.store.Patch(ctx, DraftCollection, draftID, documents.Document{
		"updatedAt": time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("draft timestamp update failed after document delete", map[string]interface{}{
			"draftId": draftID,
			"error":   err.Error(),
		})
	}
	return nil
}

// documentFieldPath returns the nested location of one document slot
// inside the draft record.
func documentFieldPath(t models.DocumentType) []string {
	switch t {
	case models.DocumentPassportPhoto:
		return []string{"documents", "passportPhoto"}
	case models.DocumentIdentification:
		return []string{"documents", "identificationDocument"}
	case models.DocumentAcademic:
		return []string{"documents", "academicDocuments"}
	}
	return nil
}

// UploadMultiple runs independent uploads concurrently. Each entry's
// success or failure is tracked on its own; one failing upload does not
// short-circuit the rest.
func (s *Service) UploadMultiple(ctx context.Context, caller *identity.Caller, reqs []UploadRequest) []UploadResult {
	results := make([]UploadResult, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req UploadRequest) {
			defer wg.Done()
			meta, err := s.UploadDocument(ctx, caller, req)
			results[i] = UploadResult{Request: req, Metadata: meta, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}

func singleSlot(docs *models.DraftDocuments, t models.DocumentType) *models.DocumentMetadata {
	switch t {
	case models.DocumentPassportPhoto:
		return docs.PassportPhoto
	case models.DocumentIdentification:
		return docs.IdentificationDocument
	}
	return nil
}
