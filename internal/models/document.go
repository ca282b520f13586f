// internal/models/document.go
package models

import "time"

// DocumentType identifies a document slot on a draft or application.
type DocumentType string

const (
	DocumentPassportPhoto  DocumentType = "passportPhoto"
	DocumentIdentification DocumentType = "identificationDocument"
	DocumentAcademic       DocumentType = "academicDocuments"
)

// Valid reports whether t is one of the known document slots.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPassportPhoto, DocumentIdentification, DocumentAcademic:
		return true
	}
	return false
}

// SingleSlot reports whether the type holds at most one document.
func (t DocumentType) SingleSlot() bool {
	return t == DocumentPassportPhoto || t == DocumentIdentification
}

// DocumentMetadata describes one uploaded document blob.
type DocumentMetadata struct {
	URL         string       `json:"url"`
	FileName    string       `json:"fileName"`
	Size        int64        `json:"size"`
	ContentType string       `json:"contentType"`
	UploadedAt  time.Time    `json:"uploadedAt"`
	Type        DocumentType `json:"type"`
}

// DraftDocuments holds the document slots of a draft.
//
// The single-slot fields deliberately omit `omitempty`: when a slot is
// cleared it must serialize as an explicit JSON null, because the remote
// store distinguishes null from an absent field and rejects undefined.
type DraftDocuments struct {
	PassportPhoto          *DocumentMetadata  `json:"passportPhoto"`
	IdentificationDocument *DocumentMetadata  `json:"identificationDocument"`
	AcademicDocuments      []DocumentMetadata `json:"academicDocuments"`
}

const (
	// MaxDocumentSize is the hard upload limit per file.
	MaxDocumentSize = 10 * 1024 * 1024

	// MaxAcademicDocuments caps the academicDocuments list during drafting.
	MaxAcademicDocuments = 5
)

// AllowedContentTypes returns the MIME allow-list for a document type.
func AllowedContentTypes(t DocumentType) []string {
	switch t {
	case DocumentAcademic:
		return []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}
	default:
		return []string{"image/jpeg", "image/jpg", "image/png"}
	}
}

// ContentTypeAllowed reports whether contentType is acceptable for t.
func ContentTypeAllowed(t DocumentType, contentType string) bool {
	for _, allowed := range AllowedContentTypes(t) {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// FileExtension maps an allowed MIME type to the stored file extension.
func FileExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "application/pdf":
		return "pdf"
	default:
		return "jpg"
	}
}
