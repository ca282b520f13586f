// internal/services/draftsync/upload_test.go
package draftsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "student-portal/internal/common/errors"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/documents"
)

func jpegBytes(n int) []byte {
	data := make([]byte, n)
	copy(data, []byte{0xFF, 0xD8, 0xFF})
	return data
}

func seedDraft(env *testEnv, caller *identity.Caller) *models.Draft {
	draft := models.NewDraft(caller.NormalizedEmail(), caller.ID)
	env.store.seed(DraftCollection, draft.ID, draft)
	return draft
}

// Invalid uploads are rejected before any storage tier is touched.
func TestUploadDocumentRejectsBeforeAnyNetworkCall(t *testing.T) {
	tests := []struct {
		name     string
		caller   *identity.Caller
		req      UploadRequest
		wantCode stderrors.ErrorCode
	}{
		{
			name:   "unverified email",
			caller: &identity.Caller{ID: "user_1", Email: "jane@example.com"},
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "photo.jpg",
				ContentType: "image/jpeg", Data: jpegBytes(128),
			},
			wantCode: stderrors.ErrCodeEmailNotVerified,
		},
		{
			name:   "anonymous",
			caller: identity.AnonymousCaller(),
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "photo.jpg",
				ContentType: "image/jpeg", Data: jpegBytes(128),
			},
			wantCode: stderrors.ErrCodeAuthRequired,
		},
		{
			name:   "unknown document type",
			caller: verifiedCaller(),
			req: UploadRequest{
				Type: "transcript", FileName: "photo.jpg",
				ContentType: "image/jpeg", Data: jpegBytes(128),
			},
			wantCode: stderrors.ErrCodeInvalidDocumentType,
		},
		{
			name:   "empty file",
			caller: verifiedCaller(),
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "photo.jpg",
				ContentType: "image/jpeg", Data: nil,
			},
			wantCode: stderrors.ErrCodeEmptyFile,
		},
		{
			name:   "oversize file",
			caller: verifiedCaller(),
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "huge.jpg",
				ContentType: "image/jpeg", Data: jpegBytes(models.MaxDocumentSize + 1),
			},
			wantCode: stderrors.ErrCodeFileTooLarge,
		},
		{
			name:   "disallowed content type",
			caller: verifiedCaller(),
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "photo.gif",
				ContentType: "image/gif", Data: jpegBytes(128),
			},
			wantCode: stderrors.ErrCodeInvalidFileType,
		},
		{
			name:   "pdf only allowed for academic documents",
			caller: verifiedCaller(),
			req: UploadRequest{
				Type: models.DocumentPassportPhoto, FileName: "photo.pdf",
				ContentType: "application/pdf", Data: jpegBytes(128),
			},
			wantCode: stderrors.ErrCodeInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.req.DraftID = "app_1700000000000_abc123def"

			meta, err := env.service.UploadDocument(context.Background(), tt.caller, tt.req)

			assert.Nil(t, meta)
			assert.True(t, stderrors.IsCode(err, tt.wantCode), "got %v", err)
			assert.Equal(t, 0, env.store.totalCalls())
			assert.Equal(t, 0, env.blobs.uploads)
		})
	}
}

func TestUploadDocumentOversizeMessageNamesLimit(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.UploadDocument(context.Background(), verifiedCaller(), UploadRequest{
		DraftID: "app_x", Type: models.DocumentPassportPhoto,
		FileName: "huge.jpg", ContentType: "image/jpeg",
		Data: jpegBytes(models.MaxDocumentSize + 1),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "10MB")
}

func TestUploadDocumentDraftMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.UploadDocument(context.Background(), verifiedCaller(), UploadRequest{
		DraftID: "app_missing", Type: models.DocumentPassportPhoto,
		FileName: "photo.jpg", ContentType: "image/jpeg", Data: jpegBytes(128),
	})

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeDraftNotFound))
	assert.Equal(t, 0, env.blobs.uploads)
}

func TestUploadDocumentStoresBlobAndPatchesDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()
	draft := seedDraft(env, caller)

	meta, err := env.service.UploadDocument(ctx, caller, UploadRequest{
		DraftID: draft.ID, Type: models.DocumentPassportPhoto,
		FileName: "photo.jpg", ContentType: "image/jpeg", Data: jpegBytes(2048),
	})
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Equal(t, models.DocumentPassportPhoto, meta.Type)
	assert.True(t, strings.HasPrefix(meta.FileName, "draft_passportPhoto_"+draft.ID+"_janeexamplecom_"))
	assert.True(t, strings.HasSuffix(meta.FileName, ".jpg"))
	assert.Contains(t, meta.URL, fmt.Sprintf("applications/%s/documents/", draft.ID))

	require.Len(t, env.store.pathCalls, 1)
	assert.Equal(t, "set", env.store.pathCalls[0].op)
	assert.Equal(t, []string{"documents", "passportPhoto"}, env.store.pathCalls[0].path)
	require.Len(t, env.store.patches, 1)
	assert.Contains(t, env.store.patches[0].fields, "updatedAt")
	assert.Equal(t, 1, env.blobs.objectCount())
}

// Re-uploading a single-slot document replaces the previous blob rather
// than accumulating orphans.
func TestUploadDocumentReplacesSingleSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()
	draft := seedDraft(env, caller)

	_, err := env.service.UploadDocument(ctx, caller, UploadRequest{
		DraftID: draft.ID, Type: models.DocumentPassportPhoto,
		FileName: "first.jpg", ContentType: "image/jpeg", Data: jpegBytes(100),
	})
	require.NoError(t, err)

	_, err = env.service.UploadDocument(ctx, caller, UploadRequest{
		DraftID: draft.ID, Type: models.DocumentPassportPhoto,
		FileName: "second.png", ContentType: "image/png", Data: jpegBytes(200),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, env.blobs.uploads)
	assert.Equal(t, 1, env.blobs.deletes)
	assert.Equal(t, 1, env.blobs.objectCount())
}

func TestUploadDocumentAcademicLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()

	draft := models.NewDraft(caller.NormalizedEmail(), caller.ID)
	for i := 0; i < models.MaxAcademicDocuments; i++ {
		draft.Documents.AcademicDocuments = append(draft.Documents.AcademicDocuments, models.DocumentMetadata{
			URL:      fmt.Sprintf("https://files.test/doc-%d.pdf", i),
			FileName: fmt.Sprintf("doc-%d.pdf", i),
			Type:     models.DocumentAcademic,
		})
	}
	env.store.seed(DraftCollection, draft.ID, draft)

	_, err := env.service.UploadDocument(ctx, caller, UploadRequest{
		DraftID: draft.ID, Type: models.DocumentAcademic,
		FileName: "one-more.pdf", ContentType: "application/pdf", Data: jpegBytes(100),
	})

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeDocumentLimitReached))
	assert.Equal(t, 0, env.blobs.uploads)
}

func TestUploadDocumentAcademicAppends(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()
	draft := seedDraft(env, caller)

	for i := 0; i < 2; i++ {
		_, err := env.service.UploadDocument(ctx, caller, UploadRequest{
			DraftID: draft.ID, Type: models.DocumentAcademic,
			FileName: fmt.Sprintf("cert-%d.pdf", i), ContentType: "application/pdf",
			Data: jpegBytes(100),
		})
		require.NoError(t, err)
	}

	doc, err := env.store.Get(ctx, DraftCollection, draft.ID)
	require.NoError(t, err)
	var stored models.Draft
	require.NoError(t, documents.Decode(doc, &stored))
	assert.Len(t, stored.Documents.AcademicDocuments, 2)
	assert.Equal(t, 2, env.blobs.uploads)
	assert.Equal(t, 0, env.blobs.deletes)
}

func TestDeleteDocumentUnknownURLIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()

	draft := models.NewDraft(caller.NormalizedEmail(), caller.ID)
	draft.Documents.AcademicDocuments = []models.DocumentMetadata{
		{URL: "https://files.test/real.pdf", FileName: "real.pdf", Type: models.DocumentAcademic},
	}
	env.store.seed(DraftCollection, draft.ID, draft)

	err := env.service.DeleteDocument(ctx, caller, draft.ID, models.DocumentAcademic, "https://files.test/never-uploaded.pdf")

	require.NoError(t, err)
	assert.Empty(t, env.store.patches)
	assert.Empty(t, env.store.pathCalls)
	assert.Equal(t, 0, env.blobs.deletes)
}

func TestDeleteDocumentRemovesMatchingAcademicEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()

	draft := models.NewDraft(caller.NormalizedEmail(), caller.ID)
	draft.Documents.AcademicDocuments = []models.DocumentMetadata{
		{URL: "https://files.test/keep.pdf", FileName: "keep.pdf", Type: models.DocumentAcademic},
		{URL: "https://files.test/drop.pdf", FileName: "drop.pdf", Type: models.DocumentAcademic},
	}
	env.store.seed(DraftCollection, draft.ID, draft)

	err := env.service.DeleteDocument(ctx, caller, draft.ID, models.DocumentAcademic, "https://files.test/drop.pdf")
	require.NoError(t, err)

	doc, err := env.store.Get(ctx, DraftCollection, draft.ID)
	require.NoError(t, err)
	var stored models.Draft
	require.NoError(t, documents.Decode(doc, &stored))
	require.Len(t, stored.Documents.AcademicDocuments, 1)
	assert.Equal(t, "keep.pdf", stored.Documents.AcademicDocuments[0].FileName)
	assert.Equal(t, 1, env.blobs.deletes)
}

// Clearing a single-slot document must write the slot as explicit null,
// not drop the key: the remote store rejects undefined values.
func TestDeleteDocumentWritesExplicitNull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()

	draft := models.NewDraft(caller.NormalizedEmail(), caller.ID)
	draft.Documents.PassportPhoto = &models.DocumentMetadata{
		URL: "https://files.test/photo.jpg", FileName: "photo.jpg", Type: models.DocumentPassportPhoto,
	}
	env.store.seed(DraftCollection, draft.ID, draft)

	err := env.service.DeleteDocument(ctx, caller, draft.ID, models.DocumentPassportPhoto, "")
	require.NoError(t, err)

	require.Len(t, env.store.pathCalls, 1)
	assert.Equal(t, []string{"documents", "passportPhoto"}, env.store.pathCalls[0].path)
	assert.Nil(t, env.store.pathCalls[0].value)

	doc, err := env.store.Get(ctx, DraftCollection, draft.ID)
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"passportPhoto":null`)
	assert.Equal(t, 1, env.blobs.deletes)
}

func TestUploadMultipleTracksEachEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()
	draft := seedDraft(env, caller)

	reqs := []UploadRequest{
		{DraftID: draft.ID, Type: models.DocumentAcademic, FileName: "a.pdf", ContentType: "application/pdf", Data: jpegBytes(100)},
		{DraftID: draft.ID, Type: models.DocumentAcademic, FileName: "b.gif", ContentType: "image/gif", Data: jpegBytes(100)},
		{DraftID: draft.ID, Type: models.DocumentAcademic, FileName: "c.pdf", ContentType: "application/pdf", Data: jpegBytes(100)},
	}

	results := env.service.UploadMultiple(ctx, caller, reqs)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.True(t, stderrors.IsCode(results[1].Err, stderrors.ErrCodeInvalidFileType))
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "b.gif", results[1].Request.FileName)
	assert.Equal(t, 2, env.blobs.uploads)
}

// Two tabs uploading academic documents at the same time must both end
// up on the draft. The gate holds every upload at the draft read until
// all of them have read, forcing the writes to race.
func TestConcurrentAcademicUploadsAllRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := verifiedCaller()
	draft := seedDraft(env, caller)

	var gate sync.WaitGroup
	gate.Add(2)
	env.store.onGet = func() {
		gate.Done()
		gate.Wait()
	}

	results := env.service.UploadMultiple(ctx, caller, []UploadRequest{
		{DraftID: draft.ID, Type: models.DocumentAcademic, FileName: "a.pdf", ContentType: "application/pdf", Data: jpegBytes(100)},
		{DraftID: draft.ID, Type: models.DocumentAcademic, FileName: "b.pdf", ContentType: "application/pdf", Data: jpegBytes(100)},
	})

	require.Len(t, results, 2)
	for _, res := range results {
		require.NoError(t, res.Err)
	}

	env.store.onGet = nil
	doc, err := env.store.Get(ctx, DraftCollection, draft.ID)
	require.NoError(t, err)
	var stored models.Draft
	require.NoError(t, documents.Decode(doc, &stored))
	assert.Len(t, stored.Documents.AcademicDocuments, 2)
	assert.Equal(t, 2, env.blobs.uploads)
}
