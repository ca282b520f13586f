// internal/services/applications/service.go

// Package applications promotes submitted forms into permanent
// application and lead records. Leads are deduplicated by email or
// phone per owner; the application and the lead commit in one atomic
// batch against the remote document store.
package applications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"student-portal/internal/common/logger"
	"student-portal/internal/common/metrics"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/documents"
)

const (
	LeadCollection        = "leads"
	ApplicationCollection = "applications"
)

const submissionNote = "Application submitted via student portal"

// SubmissionHook runs after a successful submission. Hooks are
// fire-and-forget: they run on their own goroutine and their errors are
// logged, never surfaced.
type SubmissionHook interface {
	AfterSubmission(ctx context.Context, app *models.Application, lead *models.Lead) error
}

type Config struct {
	// HistoryCooldown is how long history queries are skipped after a
	// permission denial.
	HistoryCooldown time.Duration

	// HookTimeout bounds each after-submission hook.
	HookTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		HistoryCooldown: 2 * time.Minute,
		HookTimeout:     15 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.HistoryCooldown <= 0 {
		return fmt.Errorf("history_cooldown must be positive")
	}
	if c.HookTimeout <= 0 {
		return fmt.Errorf("hook_timeout must be positive")
	}
	return nil
}

type ServiceDependencies struct {
	Store  documents.Store
	Logger logger.Logger
	Hooks  []SubmissionHook
}

type Service struct {
	config  *Config
	store   documents.Store
	logger  logger.Logger
	hooks   []SubmissionHook
	breaker *gobreaker.CircuitBreaker[[]models.Application]
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	s := &Service{
		config: config,
		store:  deps.Store,
		logger: log,
		hooks:  deps.Hooks,
	}
	s.breaker = s.newHistoryBreaker()
	return s
}

// CreateApplicationAndLead finds-or-creates the lead for the submitting
// identity and writes it together with the new application in one
// atomic batch. Lookup and commit errors propagate unchanged; there is
// no retry and, by the batch guarantee, no partial state to clean up.
func (s *Service) CreateApplicationAndLead(ctx context.Context, caller *identity.Caller, form *models.SubmissionForm, opts *models.SubmissionOptions) (*models.UpsertResult, error) {
	if err := identity.RequireVerified(caller); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(form.Email))
	if email == "" {
		email = caller.NormalizedEmail()
	}

	lead, err := s.findLead(ctx, caller.ID, email, form.Phone)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if lead != nil {
		// Repeat submission: update in place, never duplicate. The
		// assignment and interaction fields survive untouched.
		lead.Status = models.LeadStatusApplied
		lead.Name = form.FullName()
		if form.Phone != "" {
			lead.Phone = form.Phone
		}
		lead.Timeline = append(lead.Timeline, models.TimelineEntry{
			Date:   now,
			Action: models.TimelineActionApplicationSubmitted,
			Status: string(models.LeadStatusApplied),
			Note:   submissionNote,
		})
		lead.UpdatedAt = now
	} else {
		lead = &models.Lead{
			ID:      models.NewLeadID(),
			OwnerID: caller.ID,
			Name:    form.FullName(),
			Email:   email,
			Phone:   form.Phone,
			Status:  models.LeadStatusApplied,
			Source:  models.LeadSourceApplicationForm,
			Timeline: []models.TimelineEntry{{
				Date:   now,
				Action: models.TimelineActionCreated,
				Status: string(models.LeadStatusApplied),
				Note:   submissionNote,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	app := s.buildApplication(caller, form, opts, lead.ID, email, now)

	leadDoc, err := documents.Encode(lead)
	if err != nil {
		return nil, err
	}
	appDoc, err := documents.Encode(app)
	if err != nil {
		return nil, err
	}

	if err := s.store.Batch(ctx, []documents.BatchOp{
		documents.Set(LeadCollection, lead.ID, leadDoc),
		documents.Set(ApplicationCollection, app.ID, appDoc),
	}); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"leadId":        lead.ID,
		"email":         email,
	})

	s.runHooks(app, lead)

	return &models.UpsertResult{
		ApplicationID: app.ID,
		LeadID:        lead.ID,
		Success:       true,
	}, nil
}

// findLead looks up an existing lead by email first, then by phone.
// The first email match wins over any phone match.
func (s *Service) findLead(ctx context.Context, ownerID, email, phone string) (*models.Lead, error) {
	byEmail, err := s.store.Query(ctx, LeadCollection, documents.Document{
		"email":   email,
		"ownerId": ownerID,
	}, 1)
	if err != nil {
		return nil, err
	}
	match := byEmail

	if len(match) == 0 && phone != "" {
		byPhone, err := s.store.Query(ctx, LeadCollection, documents.Document{
			"phone":   phone,
			"ownerId": ownerID,
		}, 1)
		if err != nil {
			return nil, err
		}
		match = byPhone
	}

	if len(match) == 0 {
		return nil, nil
	}

	var lead models.Lead
	if err := documents.Decode(match[0], &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// buildApplication assembles the permanent record. Document fields
// default to explicit null / empty array; nothing may be left undefined.
func (s *Service) buildApplication(caller *identity.Caller, form *models.SubmissionForm, opts *models.SubmissionOptions, leadID, email string, now time.Time) *models.Application {
	app := &models.Application{
		LeadID:               leadID,
		OwnerID:              caller.ID,
		Email:                email,
		FormData:             formFields(form),
		AcademicDocumentURLs: []string{},
		Status:               models.LeadStatusApplied,
		SubmittedAt:          now,
		UpdatedAt:            now,
	}

	if opts != nil && opts.ApplicationID != "" {
		app.ID = opts.ApplicationID
	} else {
		app.ID = models.NewApplicationID()
	}

	if opts != nil && opts.Documents != nil {
		if opts.Documents.PassportPhoto != nil {
			url := opts.Documents.PassportPhoto.URL
			app.PassportPhotoURL = &url
		}
		if opts.Documents.IdentificationDocument != nil {
			url := opts.Documents.IdentificationDocument.URL
			app.IdentificationDocumentURL = &url
		}
		for _, doc := range opts.Documents.AcademicDocuments {
			app.AcademicDocumentURLs = append(app.AcademicDocumentURLs, doc.URL)
		}
	}

	return app
}

func formFields(form *models.SubmissionForm) map[string]interface{} {
	fields := map[string]interface{}{
		"firstName": form.FirstName,
		"lastName":  form.LastName,
		"email":     form.Email,
		"phone":     form.Phone,
	}
	for k, v := range form.Fields {
		fields[k] = v
	}
	return fields
}

func (s *Service) runHooks(app *models.Application, lead *models.Lead) {
	for _, hook := range s.hooks {
		go func(hook SubmissionHook) {
			ctx, cancel := context.WithTimeout(context.Background(), s.config.HookTimeout)
			defer cancel()
			if err := hook.AfterSubmission(ctx, app, lead); err != nil {
				s.logger.Warn("submission hook failed", map[string]interface{}{
					"applicationId": app.ID,
					"error":         err.Error(),
				})
			}
		}(hook)
	}
}
