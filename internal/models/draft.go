// internal/models/draft.go
package models

import "time"

// Draft is an in-progress, unsubmitted application. It is mirrored
// between the local draft cache and the remote document store; the
// remote copy wins whenever both exist.
type Draft struct {
	ID            string                 `json:"id"`
	Email         string                 `json:"email"`
	OwnerID       string                 `json:"ownerId,omitempty"`
	FormData      map[string]interface{} `json:"formData"`
	ActiveSection string                 `json:"activeSection,omitempty"`
	LastSavedAt   time.Time              `json:"lastSavedAt"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Documents     DraftDocuments         `json:"documents"`
}

// NewDraft creates an empty draft for the given normalized email.
func NewDraft(email, ownerID string) *Draft {
	now := time.Now().UTC()
	return &Draft{
		ID:       NewApplicationID(),
		Email:    email,
		OwnerID:  ownerID,
		FormData: map[string]interface{}{},
		Documents: DraftDocuments{
			AcademicDocuments: []DocumentMetadata{},
		},
		LastSavedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MergeFormData shallow-merges patch into the draft's form fields. New
// values overwrite old values for the same key; untouched keys are kept.
func (d *Draft) MergeFormData(patch map[string]interface{}) {
	if d.FormData == nil {
		d.FormData = map[string]interface{}{}
	}
	for k, v := range patch {
		d.FormData[k] = v
	}
}
