// internal/services/applications/service_test.go
package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "student-portal/internal/common/errors"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/documents"
)

// fakeStore is an in-memory documents.Store with call counting.
type fakeStore struct {
	mu    sync.Mutex
	docs  map[string]documents.Document
	calls map[string]int
	errs  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]documents.Document),
		calls: make(map[string]int),
		errs:  make(map[string]error),
	}
}

func key(collection, id string) string { return collection + "/" + id }

func (f *fakeStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) collectionSize(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.docs {
		if strings.HasPrefix(k, collection+"/") {
			n++
		}
	}
	return n
}

func (f *fakeStore) seed(collection, id string, v interface{}) {
	doc, err := documents.Encode(v)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[key(collection, id)] = doc
}

func (f *fakeStore) Get(ctx context.Context, collection, id string) (documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Get"]++
	if err := f.errs["Get"]; err != nil {
		return nil, err
	}
	doc, ok := f.docs[key(collection, id)]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) Create(ctx context.Context, collection, id string, doc documents.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Create"]++
	if err := f.errs["Create"]; err != nil {
		return err
	}
	f.docs[key(collection, id)] = doc
	return nil
}

func (f *fakeStore) Patch(ctx context.Context, collection, id string, fields documents.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Patch"]++
	if err := f.errs["Patch"]; err != nil {
		return err
	}
	doc, ok := f.docs[key(collection, id)]
	if !ok {
		return documents.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (f *fakeStore) SetPath(ctx context.Context, collection, id string, path []string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SetPath"]++
	if err := f.errs["SetPath"]; err != nil {
		return err
	}
	if _, ok := f.docs[key(collection, id)]; !ok {
		return documents.ErrNotFound
	}
	return nil
}

func (f *fakeStore) AppendToArray(ctx context.Context, collection, id string, path []string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AppendToArray"]++
	if err := f.errs["AppendToArray"]; err != nil {
		return err
	}
	if _, ok := f.docs[key(collection, id)]; !ok {
		return documents.ErrNotFound
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Delete"]++
	if err := f.errs["Delete"]; err != nil {
		return err
	}
	delete(f.docs, key(collection, id))
	return nil
}

func (f *fakeStore) Query(ctx context.Context, collection string, filters documents.Document, limit int) ([]documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Query"]++
	if err := f.errs["Query"]; err != nil {
		return nil, err
	}
	var out []documents.Document
	for k, doc := range f.docs {
		if !strings.HasPrefix(k, collection+"/") {
			continue
		}
		matched := true
		for fk, fv := range filters {
			if fmt.Sprint(doc[fk]) != fmt.Sprint(fv) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, doc)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) Batch(ctx context.Context, ops []documents.BatchOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Batch"]++
	if err := f.errs["Batch"]; err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case documents.OpSet:
			f.docs[key(op.Collection, op.ID)] = op.Data
		case documents.OpDelete:
			delete(f.docs, key(op.Collection, op.ID))
		}
	}
	return nil
}

type recordingHook struct {
	done chan struct{}
	mu   sync.Mutex
	app  *models.Application
	lead *models.Lead
}

func (h *recordingHook) AfterSubmission(ctx context.Context, app *models.Application, lead *models.Lead) error {
	h.mu.Lock()
	h.app = app
	h.lead = lead
	h.mu.Unlock()
	close(h.done)
	return nil
}

func newTestService(t *testing.T, store *fakeStore, hooks ...SubmissionHook) *Service {
	t.Helper()
	return NewService(ServiceDependencies{Store: store, Hooks: hooks}, DefaultConfig())
}

func verifiedCaller() *identity.Caller {
	return &identity.Caller{ID: "user_1", Email: "jane@example.com", EmailVerified: true}
}

func submissionForm() *models.SubmissionForm {
	return &models.SubmissionForm{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "Jane@Example.com",
		Phone:     "+15550100",
		Fields:    map[string]interface{}{"program": "computer-science"},
	}
}

func (f *fakeStore) leadByEmail(t *testing.T, email string) *models.Lead {
	t.Helper()
	docs, err := f.Query(context.Background(), LeadCollection, documents.Document{"email": email}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var lead models.Lead
	require.NoError(t, documents.Decode(docs[0], &lead))
	return &lead
}

func TestCreateApplicationAndLeadRequiresVerifiedEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	caller := verifiedCaller()
	caller.EmailVerified = false

	_, err := svc.CreateApplicationAndLead(context.Background(), caller, submissionForm(), nil)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeEmailNotVerified))
	assert.Equal(t, 0, store.callCount("Query"))
	assert.Equal(t, 0, store.callCount("Batch"))
}

func TestCreateApplicationAndLeadFirstSubmission(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	result, err := svc.CreateApplicationAndLead(context.Background(), verifiedCaller(), submissionForm(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ApplicationID)
	assert.NotEmpty(t, result.LeadID)

	// One batch writes both records.
	assert.Equal(t, 1, store.callCount("Batch"))
	assert.Equal(t, 1, store.collectionSize(LeadCollection))
	assert.Equal(t, 1, store.collectionSize(ApplicationCollection))

	lead := store.leadByEmail(t, "jane@example.com")
	assert.Equal(t, result.LeadID, lead.ID)
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, models.LeadStatusApplied, lead.Status)
	assert.Equal(t, models.LeadSourceApplicationForm, lead.Source)
	assert.Equal(t, "user_1", lead.OwnerID)
	require.Len(t, lead.Timeline, 1)
	assert.Equal(t, models.TimelineActionCreated, lead.Timeline[0].Action)
}

// Document reference fields must serialize as explicit null / empty
// array when no documents were attached, never as absent keys.
func TestApplicationRecordHasNoUndefinedFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	result, err := svc.CreateApplicationAndLead(context.Background(), verifiedCaller(), submissionForm(), nil)
	require.NoError(t, err)

	doc, err := store.Get(context.Background(), ApplicationCollection, result.ApplicationID)
	require.NoError(t, err)

	for _, field := range []string{"passportPhotoUrl", "identificationDocumentUrl", "academicDocumentUrls"} {
		v, present := doc[field]
		assert.True(t, present, field)
		if field == "academicDocumentUrls" {
			assert.NotNil(t, v, field)
		} else {
			assert.Nil(t, v, field)
		}
	}
}

func TestCreateApplicationAndLeadAttachesDraftDocuments(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	photoURL := "https://files.test/photo.jpg"
	result, err := svc.CreateApplicationAndLead(context.Background(), verifiedCaller(), submissionForm(), &models.SubmissionOptions{
		ApplicationID: "app_1700000000000_abc123def",
		Documents: &models.DraftDocuments{
			PassportPhoto: &models.DocumentMetadata{URL: photoURL},
			AcademicDocuments: []models.DocumentMetadata{
				{URL: "https://files.test/cert-1.pdf"},
				{URL: "https://files.test/cert-2.pdf"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "app_1700000000000_abc123def", result.ApplicationID)

	doc, err := store.Get(context.Background(), ApplicationCollection, result.ApplicationID)
	require.NoError(t, err)
	var app models.Application
	require.NoError(t, documents.Decode(doc, &app))

	require.NotNil(t, app.PassportPhotoURL)
	assert.Equal(t, photoURL, *app.PassportPhotoURL)
	assert.Nil(t, app.IdentificationDocumentURL)
	assert.Len(t, app.AcademicDocumentURLs, 2)
}

// Submitting twice with the same email must update the one lead in
// place, never create a second one.
func TestRepeatSubmissionDeduplicatesLead(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	caller := verifiedCaller()

	first, err := svc.CreateApplicationAndLead(ctx, caller, submissionForm(), nil)
	require.NoError(t, err)

	createdAt := store.leadByEmail(t, "jane@example.com").CreatedAt

	second, err := svc.CreateApplicationAndLead(ctx, caller, submissionForm(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.LeadID, second.LeadID)
	assert.NotEqual(t, first.ApplicationID, second.ApplicationID)
	assert.Equal(t, 1, store.collectionSize(LeadCollection))
	assert.Equal(t, 2, store.collectionSize(ApplicationCollection))

	lead := store.leadByEmail(t, "jane@example.com")
	require.Len(t, lead.Timeline, 2)
	assert.Equal(t, models.TimelineActionCreated, lead.Timeline[0].Action)
	assert.Equal(t, models.TimelineActionApplicationSubmitted, lead.Timeline[1].Action)
	assert.Equal(t, createdAt, lead.CreatedAt)
}

// Assignment fields set by admissions staff survive a repeat submission.
func TestRepeatSubmissionPreservesAssignment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	existing := &models.Lead{
		ID:                "lead_1700000000000_abc123def",
		OwnerID:           "user_1",
		Name:              "Jane Doe",
		Email:             "jane@example.com",
		Phone:             "+15550100",
		Status:            models.LeadStatusInReview,
		Source:            models.LeadSourceApplicationForm,
		AssignedTo:        "counselor-7",
		Priority:          "high",
		TotalInteractions: 4,
		Tags:              []string{"scholarship"},
		Timeline: []models.TimelineEntry{{
			Date: time.Now().UTC(), Action: models.TimelineActionCreated,
			Status: string(models.LeadStatusInterested),
		}},
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-24 * time.Hour),
	}
	store.seed(LeadCollection, existing.ID, existing)

	_, err := svc.CreateApplicationAndLead(ctx, verifiedCaller(), submissionForm(), nil)
	require.NoError(t, err)

	lead := store.leadByEmail(t, "jane@example.com")
	assert.Equal(t, existing.ID, lead.ID)
	assert.Equal(t, models.LeadStatusApplied, lead.Status)
	assert.Equal(t, "counselor-7", lead.AssignedTo)
	assert.Equal(t, "high", lead.Priority)
	assert.Equal(t, 4, lead.TotalInteractions)
	assert.Equal(t, []string{"scholarship"}, lead.Tags)
}

func TestFindLeadFallsBackToPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	existing := &models.Lead{
		ID:      "lead_1700000000000_abc123def",
		OwnerID: "user_1",
		Name:    "Jane Doe",
		Email:   "old-address@example.com",
		Phone:   "+15550100",
		Status:  models.LeadStatusInterested,
		Source:  models.LeadSourceWebsite,
	}
	store.seed(LeadCollection, existing.ID, existing)

	result, err := svc.CreateApplicationAndLead(ctx, verifiedCaller(), submissionForm(), nil)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, result.LeadID)
	assert.Equal(t, 1, store.collectionSize(LeadCollection))
}

func TestBatchFailureLeavesNoPartialState(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	boom := errors.New("store unavailable")
	store.errs["Batch"] = boom

	_, err := svc.CreateApplicationAndLead(context.Background(), verifiedCaller(), submissionForm(), nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.collectionSize(LeadCollection))
	assert.Equal(t, 0, store.collectionSize(ApplicationCollection))
}

func TestSubmissionHooksRunAfterCommit(t *testing.T) {
	store := newFakeStore()
	hook := &recordingHook{done: make(chan struct{})}
	svc := newTestService(t, store, hook)

	result, err := svc.CreateApplicationAndLead(context.Background(), verifiedCaller(), submissionForm(), nil)
	require.NoError(t, err)

	select {
	case <-hook.done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission hook never ran")
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	assert.Equal(t, result.ApplicationID, hook.app.ID)
	assert.Equal(t, result.LeadID, hook.lead.ID)
}
