// internal/services/draftsync/service.go

// Package draftsync reconciles a user's in-progress application between
// the local draft cache and the remote document store, and manages the
// lifecycle of uploaded document blobs tied to that draft.
//
// Tiering rule: the remote copy wins whenever both tiers hold a draft;
// the local cache is the fallback and is mirrored on every read. Remote
// writes are best-effort and never fail the caller; only hard validation
// errors surface.
package draftsync

import (
	"context"
	"errors"
	"strings"
	"time"

	stderrors "student-portal/internal/common/errors"
	"student-portal/internal/common/logger"
	"student-portal/internal/common/metrics"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/blobs"
	"student-portal/internal/store/cache"
	"student-portal/internal/store/documents"
)

// DraftCollection is the remote collection holding draft records.
const DraftCollection = "applicationDrafts"

// ApplicationUpserter promotes a draft into permanent records. Implemented
// by the applications service.
type ApplicationUpserter interface {
	CreateApplicationAndLead(ctx context.Context, caller *identity.Caller, form *models.SubmissionForm, opts *models.SubmissionOptions) (*models.UpsertResult, error)
}

type ServiceDependencies struct {
	Cache    *cache.DraftCache
	Store    documents.Store
	Blobs    blobs.Store
	Upserter ApplicationUpserter
	Logger   logger.Logger
}

type Service struct {
	cache    *cache.DraftCache
	store    documents.Store
	blobs    blobs.Store
	upserter ApplicationUpserter
	logger   logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	return &Service{
		cache:    deps.Cache,
		store:    deps.Store,
		blobs:    deps.Blobs,
		upserter: deps.Upserter,
		logger:   log,
	}
}

// EnsureDraft returns the single logical in-progress draft for the
// caller, creating one if neither tier holds a match. A draft object is
// always returned; remote-store unavailability degrades the Outcome but
// never raises an error.
func (s *Service) EnsureDraft(ctx context.Context, caller *identity.Caller, email string) (*models.Draft, Outcome) {
	var outcome Outcome

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" && caller.Authenticated() {
		email = caller.NormalizedEmail()
	}

	// Remote copy wins when the caller is authenticated.
	if caller.Authenticated() {
		if remote := s.findRemote(ctx, email, caller, &outcome); remote != nil {
			s.mirrorLocal(ctx, remote, &outcome)
			metrics.DraftSyncOutcomes.WithLabelValues("ensure", outcome.label()).Inc()
			return remote, outcome
		}
	}

	local, err := s.cache.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn("draft cache scan failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		outcome.warnf("local cache scan failed: %v", err)
	}

	if local != nil {
		s.mirrorRemote(ctx, local, caller, &outcome)
		metrics.DraftSyncOutcomes.WithLabelValues("ensure", outcome.label()).Inc()
		return local, outcome
	}

	ownerID := ""
	if caller.Authenticated() {
		ownerID = caller.ID
	}
	draft := models.NewDraft(email, ownerID)

	// The local write is the one that matters: its failure is logged and
	// degrades the outcome, but the draft object is still returned.
	if err := s.cache.Put(ctx, draft); err != nil {
		s.logger.Warn("failed to cache new draft", map[string]interface{}{
			"draftId": draft.ID,
			"error":   err.Error(),
		})
		outcome.warnf("local cache write failed: %v", err)
	}

	s.mirrorRemote(ctx, draft, caller, &outcome)
	metrics.DraftSyncOutcomes.WithLabelValues("ensure", outcome.label()).Inc()
	return draft, outcome
}

// findRemote queries the remote store for the caller's draft and
// backfills the owner id if it is missing or stale. Best-effort.
func (s *Service) findRemote(ctx context.Context, email string, caller *identity.Caller, outcome *Outcome) *models.Draft {
	docs, err := s.store.Query(ctx, DraftCollection, documents.Document{"email": email}, 1)
	if err != nil {
		s.logger.Warn("remote draft lookup failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		outcome.warnf("remote draft lookup failed: %v", err)
		return nil
	}
	if len(docs) == 0 {
		return nil
	}

	var draft models.Draft
	if err := documents.Decode(docs[0], &draft); err != nil {
		s.logger.Warn("remote draft decode failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		outcome.warnf("remote draft decode failed: %v", err)
		return nil
	}

	if draft.OwnerID != caller.ID {
		if err := s.store.Patch(ctx, DraftCollection, draft.ID, documents.Document{"ownerId": caller.ID}); err != nil {
			s.logger.Warn("owner backfill failed", map[string]interface{}{
				"draftId": draft.ID,
				"error":   err.Error(),
			})
		}
		draft.OwnerID = caller.ID
	}
	return &draft
}

// mirrorLocal copies the winning remote draft into the local cache.
func (s *Service) mirrorLocal(ctx context.Context, draft *models.Draft, outcome *Outcome) {
	if err := s.cache.Put(ctx, draft); err != nil {
		s.logger.Warn("failed to mirror remote draft locally", map[string]interface{}{
			"draftId": draft.ID,
			"error":   err.Error(),
		})
		outcome.warnf("local mirror failed: %v", err)
	}
}

// mirrorRemote best-effort writes the local draft into the remote store.
// Silent on failure beyond logging and outcome degradation.
func (s *Service) mirrorRemote(ctx context.Context, draft *models.Draft, caller *identity.Caller, outcome *Outcome) {
	if !caller.Authenticated() {
		return
	}
	if draft.OwnerID == "" {
		draft.OwnerID = caller.ID
	}

	doc, err := documents.Encode(draft)
	if err != nil {
		outcome.warnf("remote mirror encode failed: %v", err)
		return
	}
	if err := s.store.Create(ctx, DraftCollection, draft.ID, doc); err != nil {
		s.logger.Warn("remote draft mirror failed", map[string]interface{}{
			"draftId": draft.ID,
			"error":   err.Error(),
		})
		outcome.warnf("remote mirror failed: %v", err)
	}
}

// SavePatch is one autosave increment.
type SavePatch struct {
	FormData      map[string]interface{}
	ActiveSection string
	SavedAt       time.Time
}

// SaveDraft merges the patch into the local cache copy first, then
// best-effort replays the merge against the remote store. All remote
// failures are absorbed into the Outcome.
func (s *Service) SaveDraft(ctx context.Context, caller *identity.Caller, draftID string, patch SavePatch) Outcome {
	var outcome Outcome

	savedAt := patch.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	local, err := s.cache.Get(ctx, draftID)
	if errors.Is(err, cache.ErrNotFound) {
		local = &models.Draft{
			ID:        draftID,
			FormData:  map[string]interface{}{},
			Documents: models.DraftDocuments{AcademicDocuments: []models.DocumentMetadata{}},
			CreatedAt: savedAt,
		}
		if caller.Authenticated() {
			local.Email = caller.NormalizedEmail()
			local.OwnerID = caller.ID
		}
	} else if err != nil {
		s.logger.Warn("draft cache read failed", map[string]interface{}{
			"draftId": draftID,
			"error":   err.Error(),
		})
		outcome.warnf("local cache read failed: %v", err)
		local = &models.Draft{ID: draftID, FormData: map[string]interface{}{}}
	}

	local.MergeFormData(patch.FormData)
	if patch.ActiveSection != "" {
		local.ActiveSection = patch.ActiveSection
	}
	local.LastSavedAt = savedAt
	local.UpdatedAt = time.Now().UTC()

	if err := s.cache.Put(ctx, local); err != nil {
		s.logger.Warn("draft cache write failed", map[string]interface{}{
			"draftId": draftID,
			"error":   err.Error(),
		})
		outcome.warnf("local cache write failed: %v", err)
	}

	if caller.Authenticated() {
		s.saveRemote(ctx, local, patch, &outcome)
	}

	metrics.DraftSyncOutcomes.WithLabelValues("save", outcome.label()).Inc()
	return outcome
}

func (s *Service) saveRemote(ctx context.Context, local *models.Draft, patch SavePatch, outcome *Outcome) {
	remoteDoc, err := s.store.Get(ctx, DraftCollection, local.ID)
	if errors.Is(err, documents.ErrNotFound) {
		// Falls back to creating the remote record from the merged local copy.
		doc, encErr := documents.Encode(local)
		if encErr != nil {
			outcome.warnf("remote save encode failed: %v", encErr)
			return
		}
		if err := s.store.Create(ctx, DraftCollection, local.ID, doc); err != nil {
			s.logger.Warn("remote draft create failed", map[string]interface{}{
				"draftId": local.ID,
				"error":   err.Error(),
			})
			outcome.warnf("remote create failed: %v", err)
		}
		return
	}
	if err != nil {
		s.logger.Warn("remote draft read failed", map[string]interface{}{
			"draftId": local.ID,
			"error":   err.Error(),
		})
		outcome.warnf("remote read failed: %v", err)
		return
	}

	var remote models.Draft
	if err := documents.Decode(remoteDoc, &remote); err != nil {
		outcome.warnf("remote draft decode failed: %v", err)
		return
	}
	remote.MergeFormData(patch.FormData)

	fields := documents.Document{
		"formData":    remote.FormData,
		"lastSavedAt": local.LastSavedAt,
		"updatedAt":   local.UpdatedAt,
	}
	if patch.ActiveSection != "" {
		fields["activeSection"] = patch.ActiveSection
	}

	if err := s.store.Patch(ctx, DraftCollection, local.ID, fields); err != nil {
		s.logger.Warn("remote draft update failed", map[string]interface{}{
			"draftId": local.ID,
			"error":   err.Error(),
		})
		outcome.warnf("remote update failed: %v", err)
	}
}

// PromoteDraft converts a draft into a permanent application and lead,
// reusing the draft id as the application id, then deletes the draft
// record. Uploaded blobs are retained: the application now references
// them. Upsert errors propagate unchanged.
func (s *Service) PromoteDraft(ctx context.Context, caller *identity.Caller, draftID string, form *models.SubmissionForm) (*models.UpsertResult, error) {
	if err := identity.RequireVerified(caller); err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, DraftCollection, draftID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, stderrors.NewDraftNotFoundError(draftID)
	}
	if err != nil {
		return nil, err
	}

	var draft models.Draft
	if err := documents.Decode(doc, &draft); err != nil {
		return nil, err
	}

	result, err := s.upserter.CreateApplicationAndLead(ctx, caller, form, &models.SubmissionOptions{
		ApplicationID: draftID,
		Documents:     &draft.Documents,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, DraftCollection, draftID); err != nil {
		// The submission already committed; a lingering draft record is
		// cleaned up on the next promotion attempt or by ops tooling.
		s.logger.Warn("draft record cleanup failed after promotion", map[string]interface{}{
			"draftId": draftID,
			"error":   err.Error(),
		})
	}

	return result, nil
}
