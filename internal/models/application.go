// internal/models/application.go
package models

import "time"

// Application is the permanent, submitted admissions record. It shares
// its id space with drafts: a promoted draft keeps its id.
type Application struct {
	ID       string                 `json:"id"`
	LeadID   string                 `json:"leadId"`
	OwnerID  string                 `json:"ownerId,omitempty"`
	Email    string                 `json:"email"`
	FormData map[string]interface{} `json:"formData"`

	// Document references. Pointer fields serialize as explicit null when
	// unset; the URL array is always present, possibly empty. The remote
	// store rejects undefined values, so nothing here may be omitted.
	PassportPhotoURL          *string  `json:"passportPhotoUrl"`
	IdentificationDocumentURL *string  `json:"identificationDocumentUrl"`
	AcademicDocumentURLs      []string `json:"academicDocumentUrls"`

	Status      LeadStatus `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasDocuments reports whether any document field is populated.
func (a *Application) HasDocuments() bool {
	return a.PassportPhotoURL != nil ||
		a.IdentificationDocumentURL != nil ||
		len(a.AcademicDocumentURLs) > 0
}

// SubmissionForm carries the fields of a final application submission.
// Contact fields are typed because lead deduplication keys on them; the
// remaining personal/academic/sponsor fields travel in Fields as-is.
type SubmissionForm struct {
	FirstName string                 `json:"firstName"`
	LastName  string                 `json:"lastName"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// FullName returns the applicant's display name.
func (f *SubmissionForm) FullName() string {
	if f.FirstName == "" {
		return f.LastName
	}
	if f.LastName == "" {
		return f.FirstName
	}
	return f.FirstName + " " + f.LastName
}

// SubmissionOptions carries draft-promotion context into the upsert:
// the draft id to reuse as the application id and the accumulated
// document slots to attach.
type SubmissionOptions struct {
	ApplicationID string
	Documents     *DraftDocuments
}

// UpsertResult reports the outcome of an application submission.
type UpsertResult struct {
	ApplicationID string `json:"applicationId"`
	LeadID        string `json:"leadId"`
	Success       bool   `json:"success"`
}
