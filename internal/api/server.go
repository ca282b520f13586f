// internal/api/server.go

// Package api exposes the portal's HTTP surface: draft sync, document
// upload, submission, and application history.
package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"student-portal/internal/common/config"
	"student-portal/internal/common/logger"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/search"
	"student-portal/internal/services/draftsync"
)

// DraftService is the draft-synchronization surface the handlers need.
type DraftService interface {
	EnsureDraft(ctx context.Context, caller *identity.Caller, email string) (*models.Draft, draftsync.Outcome)
	SaveDraft(ctx context.Context, caller *identity.Caller, draftID string, patch draftsync.SavePatch) draftsync.Outcome
	PromoteDraft(ctx context.Context, caller *identity.Caller, draftID string, form *models.SubmissionForm) (*models.UpsertResult, error)
	UploadDocument(ctx context.Context, caller *identity.Caller, req draftsync.UploadRequest) (*models.DocumentMetadata, error)
	DeleteDocument(ctx context.Context, caller *identity.Caller, draftID string, docType models.DocumentType, downloadURL string) error
}

// ApplicationService is the submitted-application surface the handlers need.
type ApplicationService interface {
	History(ctx context.Context, caller *identity.Caller) ([]models.Application, error)
}

// SearchService is the back-office application search surface. Optional:
// the route is only mounted when a search backend is configured.
type SearchService interface {
	Search(ctx context.Context, req search.SearchRequest) ([]search.Hit, int64, error)
}

// Notifier dispatches phone verification codes. Optional, like search.
type Notifier interface {
	SendVerificationCode(ctx context.Context, phone, code string)
}

type ServerDependencies struct {
	Auth         identity.Provider
	Drafts       DraftService
	Applications ApplicationService
	Search       SearchService
	Notify       Notifier
	Logger       logger.Logger
}

type Server struct {
	app    *fiber.App
	config config.ServerConfig
	auth   identity.Provider
	drafts DraftService
	apps   ApplicationService
	search SearchService
	notify Notifier
	logger logger.Logger
}

func NewServer(cfg config.ServerConfig, deps ServerDependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	s := &Server{
		config: cfg,
		auth:   deps.Auth,
		drafts: deps.Drafts,
		apps:   deps.Applications,
		search: deps.Search,
		notify: deps.Notify,
		logger: log,
	}

	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "student-portal",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Accept, Authorization",
	}))
	app.Use(s.requestID())

	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", s.withCaller())
	api.Get("/drafts", s.handleEnsureDraft)
	api.Put("/drafts/:id", s.handleSaveDraft)
	api.Post("/drafts/:id/submit", s.handleSubmit)
	api.Post("/drafts/:id/documents", s.handleUploadDocument)
	api.Delete("/drafts/:id/documents", s.handleDeleteDocument)
	api.Get("/applications", s.handleHistory)

	if s.notify != nil {
		api.Post("/verification/phone", s.handleSendVerification)
	}
	if s.search != nil {
		api.Get("/search", s.handleSearch)
	}

	s.app = app
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.config.Address,
	})
	return s.app.Listen(s.config.Address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}
