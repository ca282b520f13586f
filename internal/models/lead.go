// internal/models/lead.go
package models

import "time"

// LeadStatus is the canonical admissions lead status enumeration.
type LeadStatus string

const (
	LeadStatusInterested      LeadStatus = "INTERESTED"
	LeadStatusApplied         LeadStatus = "APPLIED"
	LeadStatusMissingDocument LeadStatus = "MISSING_DOCUMENT"
	LeadStatusInReview        LeadStatus = "IN_REVIEW"
	LeadStatusQualified       LeadStatus = "QUALIFIED"
	LeadStatusAdmitted        LeadStatus = "ADMITTED"
	LeadStatusEnrolled        LeadStatus = "ENROLLED"
	LeadStatusDeferred        LeadStatus = "DEFERRED"
	LeadStatusExpired         LeadStatus = "EXPIRED"
)

// LeadSource records where a lead entered the funnel.
type LeadSource string

const (
	LeadSourceApplicationForm LeadSource = "APPLICATION_FORM"
	LeadSourceWebsite         LeadSource = "WEBSITE"
	LeadSourceReferral        LeadSource = "REFERRAL"
	LeadSourceWalkIn          LeadSource = "WALK_IN"
	LeadSourceSocialMedia     LeadSource = "SOCIAL_MEDIA"
)

// TimelineEntry is one append-only interaction record on a lead.
type TimelineEntry struct {
	Date   time.Time `json:"date"`
	Action string    `json:"action"`
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
}

const (
	TimelineActionCreated              = "CREATED"
	TimelineActionApplicationSubmitted = "APPLICATION_SUBMITTED"
)

// Lead is a CRM-style contact record, deduplicated by email or phone.
// Leads are never deleted by the portal; repeat submissions update the
// existing record in place.
type Lead struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"ownerId,omitempty"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone,omitempty"`
	Status            LeadStatus      `json:"status"`
	Source            LeadSource      `json:"source"`
	AssignedTo        string          `json:"assignedTo,omitempty"`
	Priority          string          `json:"priority,omitempty"`
	TotalInteractions int             `json:"totalInteractions"`
	Tags              []string        `json:"tags,omitempty"`
	Timeline          []TimelineEntry `json:"timeline"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
