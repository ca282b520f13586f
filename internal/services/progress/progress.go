// internal/services/progress/progress.go

// Package progress derives dashboard presentation state from an
// application's status. Everything here is pure: the same inputs always
// produce the same outputs.
package progress

import (
	"strings"

	"student-portal/internal/models"
)

const TotalSteps = 5

// Progress is the derived dashboard state for one application.
type Progress struct {
	CompletedSteps     int    `json:"completedSteps"`
	TotalSteps         int    `json:"totalSteps"`
	ProgressPercentage int    `json:"progressPercentage"`
	Status             string `json:"status"`
	StatusLabel        string `json:"statusLabel"`
	Color              string `json:"color"`
	NextAction         string `json:"nextAction"`
}

type statusEntry struct {
	steps      int
	percentage int
	label      string
	color      string
	nextAction string
}

// statusTable maps lowercase status to derived state. Percentages are
// fixed per status rather than computed, so the dashboard never shows
// jitter between equivalent applications.
var statusTable = map[string]statusEntry{
	"interested": {
		steps: 1, percentage: 20,
		label: "Interested", color: "gray",
		nextAction: "Complete and submit your application",
	},
	"applied": {
		steps: 3, percentage: 60,
		label: "Application submitted", color: "blue",
		nextAction: "Wait for the admissions office to review your application",
	},
	"missing_document": {
		steps: 3, percentage: 50,
		label: "Documents required", color: "orange",
		nextAction: "Upload the missing documents",
	},
	"in_review": {
		steps: 4, percentage: 75,
		label: "Under review", color: "blue",
		nextAction: "Wait for the review decision",
	},
	"qualified": {
		steps: 4, percentage: 85,
		label: "Qualified", color: "teal",
		nextAction: "Wait for your admission letter",
	},
	"admitted": {
		steps: 5, percentage: 95,
		label: "Admitted", color: "green",
		nextAction: "Complete enrollment and pay your fees",
	},
	"enrolled": {
		steps: 5, percentage: 100,
		label: "Enrolled", color: "green",
		nextAction: "Welcome! Check your student email for onboarding details",
	},
	"deferred": {
		steps: 2, percentage: 40,
		label: "Deferred", color: "orange",
		nextAction: "Contact admissions about the next intake",
	},
	"expired": {
		steps: 0, percentage: 0,
		label: "Expired", color: "red",
		nextAction: "Start a new application",
	},
}

// Calculate derives the dashboard progress for an application. The
// status lookup is case-insensitive; an unknown status falls back to
// document-presence partial credit.
func Calculate(app *models.Application) Progress {
	status := strings.ToLower(strings.TrimSpace(string(app.Status)))

	entry, ok := statusTable[status]
	if !ok {
		entry = fallbackEntry(app)
	}

	return Progress{
		CompletedSteps:     entry.steps,
		TotalSteps:         TotalSteps,
		ProgressPercentage: clamp(entry.percentage),
		Status:             strings.ToUpper(status),
		StatusLabel:        entry.label,
		Color:              entry.color,
		NextAction:         entry.nextAction,
	}
}

// fallbackEntry grants a small partial-progress credit when the status
// is unknown but documents already exist.
func fallbackEntry(app *models.Application) statusEntry {
	if app.HasDocuments() {
		return statusEntry{
			steps: 1, percentage: 10,
			label: "In progress", color: "gray",
			nextAction: "Complete and submit your application",
		}
	}
	return statusEntry{
		steps: 0, percentage: 0,
		label: "Not started", color: "gray",
		nextAction: "Start your application",
	}
}

func clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
